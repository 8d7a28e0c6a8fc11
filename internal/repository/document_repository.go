package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/energy-contracts/internal/model"
)

type documentRepository struct {
	db *gorm.DB
}

func (r *documentRepository) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	var saved model.Document
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO documents (file_name, content_type, size, content, uploaded_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, file_name, content_type, size, uploaded_by, created_at
	`, doc.FileName, doc.ContentType, len(doc.Content), doc.Content, doc.UploadedBy).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *documentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, file_name, content_type, size, content, uploaded_by, created_at
		FROM documents
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &doc, nil
}

func (r *documentRepository) DocumentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (SELECT 1 FROM documents WHERE id = ?)
	`, id).Scan(&exists).Error; err != nil {
		return false, err
	}
	return exists, nil
}

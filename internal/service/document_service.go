package service

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/repository"
)

// DocumentService stores attachments that history records reference.
type DocumentService struct {
	repo     repository.DocumentRepository
	maxBytes int64
	log      zerolog.Logger
}

func NewDocumentService(repo repository.DocumentRepository, maxBytes int64, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		repo:     repo,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "documents").Logger(),
	}
}

type UploadInput struct {
	FileName    string
	ContentType string
	Content     []byte
	Principal   model.Principal
}

func (s *DocumentService) StoreDocument(ctx context.Context, input UploadInput) (*model.Document, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	name := filepath.Base(strings.TrimSpace(input.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, invalid("file", "file name is required")
	}
	if len(input.Content) == 0 {
		return nil, invalid("file", "file is empty")
	}
	if s.maxBytes > 0 && int64(len(input.Content)) > s.maxBytes {
		return nil, invalid("file", "file exceeds %d bytes", s.maxBytes)
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(input.Content)
	}

	doc, err := s.repo.CreateDocument(ctx, model.Document{
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(input.Content)),
		Content:     input.Content,
		UploadedBy:  input.Principal.UserID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("file_name", name).Msg("failed to store document")
		return nil, &PersistenceError{Op: "store document", Retryable: errors.Is(err, context.DeadlineExceeded), Err: err}
	}
	s.log.Info().
		Stringer("document_id", doc.ID).
		Str("file_name", doc.FileName).
		Int64("size", doc.Size).
		Msg("document stored")
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("document", id)
		}
		return nil, &PersistenceError{Op: "load document", Err: err}
	}
	return doc, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"
)

// PostgresStore implements Store on top of gorm.
type PostgresStore struct {
	*contractRepository
	*commissionRepository
	*historyRepository
	*directoryRepository
	*documentRepository
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{
		contractRepository:   &contractRepository{db: db},
		commissionRepository: &commissionRepository{db: db},
		historyRepository:    &historyRepository{db: db},
		directoryRepository:  &directoryRepository{db: db},
		documentRepository:   &documentRepository{db: db},
		db:                   db,
	}
}

func (s *PostgresStore) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPostgresStore(tx))
	})
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

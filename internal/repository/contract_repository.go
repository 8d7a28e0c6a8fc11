package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/energy-contracts/internal/model"
)

const contractColumns = `
	id,
	customer_id,
	commodity,
	supply_point,
	supplier,
	"procedure",
	status,
	price,
	stipulated_at,
	activated_at,
	expires_at,
	note,
	revision,
	superseded_at,
	superseded_by,
	created_by,
	created_at,
	updated_at`

type contractRepository struct {
	db *gorm.DB
}

func (r *contractRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+contractColumns+`
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

func (r *contractRepository) ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+contractColumns+`
		FROM contracts
		WHERE customer_id = ?
		ORDER BY created_at ASC, id ASC
	`, customerID).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) CreateContract(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO contracts (
			id,
			customer_id,
			commodity,
			supply_point,
			supplier,
			"procedure",
			status,
			price,
			stipulated_at,
			activated_at,
			expires_at,
			note,
			revision,
			created_by
		) VALUES (COALESCE(?, gen_random_uuid()), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		RETURNING`+contractColumns,
		nullableID(contract.ID),
		contract.CustomerID,
		contract.Commodity,
		strings.TrimSpace(contract.SupplyPoint),
		contract.Supplier,
		contract.Procedure,
		contract.Status,
		contract.Price,
		contract.StipulatedAt,
		contract.ActivatedAt,
		contract.ExpiresAt,
		contract.Note,
		contract.CreatedBy,
	).Scan(&saved).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &saved, nil
}

func (r *contractRepository) UpdateContractState(
	ctx context.Context,
	id uuid.UUID,
	status model.Status,
	procedure model.Procedure,
	expectedRevision int64,
) (*model.Contract, error) {
	var saved model.Contract
	err := r.db.WithContext(ctx).Raw(`
		UPDATE contracts
		SET
			status = ?,
			"procedure" = ?,
			revision = revision + 1,
			updated_at = NOW()
		WHERE id = ? AND revision = ?
		RETURNING`+contractColumns,
		status, procedure, id, expectedRevision,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID != uuid.Nil {
		return &saved, nil
	}

	if _, err := r.GetContract(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrRevisionConflict
}

func (r *contractRepository) MarkSuperseded(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET
			superseded_at = ?,
			superseded_by = ?,
			revision = revision + 1,
			updated_at = NOW()
		WHERE id = ? AND superseded_at IS NULL
	`, at, by, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

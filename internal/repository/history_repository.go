package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/energy-contracts/internal/model"
)

const historyColumns = `
	id,
	contract_id,
	previous_procedure,
	new_procedure,
	previous_status,
	new_status,
	note,
	attachment_ref,
	actor_id,
	created_at`

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) AppendHistory(ctx context.Context, record model.ProcedureHistoryRecord) (*model.ProcedureHistoryRecord, error) {
	var saved model.ProcedureHistoryRecord
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO procedure_history (
			contract_id,
			previous_procedure,
			new_procedure,
			previous_status,
			new_status,
			note,
			attachment_ref,
			actor_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING`+historyColumns,
		record.ContractID,
		record.PreviousProcedure,
		record.NewProcedure,
		record.PreviousStatus,
		record.NewStatus,
		record.Note,
		record.AttachmentRef,
		record.ActorID,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// ListHistory returns the records of a contract, most recent first.
func (r *historyRepository) ListHistory(ctx context.Context, contractID uuid.UUID) ([]model.ProcedureHistoryRecord, error) {
	var records []model.ProcedureHistoryRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+historyColumns+`
		FROM procedure_history
		WHERE contract_id = ?
		ORDER BY created_at DESC, seq DESC
	`, contractID).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

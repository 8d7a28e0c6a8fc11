package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/energy-contracts/internal/model"
)

const assignmentColumns = `
	id,
	customer_id,
	commodity,
	agent_id,
	amount,
	mode,
	assigned_by,
	created_at,
	updated_at`

type commissionRepository struct {
	db *gorm.DB
}

func (r *commissionRepository) GetAssignment(ctx context.Context, customerID uuid.UUID, commodity model.Commodity) (*model.CommissionAssignment, error) {
	var assignment model.CommissionAssignment
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+assignmentColumns+`
		FROM commission_assignments
		WHERE customer_id = ? AND commodity = ?
		LIMIT 1
	`, customerID, commodity).Scan(&assignment).Error
	if err != nil {
		return nil, err
	}
	if assignment.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &assignment, nil
}

func (r *commissionRepository) ListAssignments(ctx context.Context, customerID uuid.UUID) ([]model.CommissionAssignment, error) {
	var assignments []model.CommissionAssignment
	err := r.db.WithContext(ctx).Raw(`
		SELECT`+assignmentColumns+`
		FROM commission_assignments
		WHERE customer_id = ?
		ORDER BY commodity ASC
	`, customerID).Scan(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpsertAssignment replaces the assignment for (customer, commodity) so that
// at most one is ever active.
func (r *commissionRepository) UpsertAssignment(ctx context.Context, assignment model.CommissionAssignment) (*model.CommissionAssignment, error) {
	var saved model.CommissionAssignment
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO commission_assignments (
			customer_id,
			commodity,
			agent_id,
			amount,
			mode,
			assigned_by
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT ON CONSTRAINT `+ConstraintCommissionCustomer+` DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			amount = EXCLUDED.amount,
			mode = EXCLUDED.mode,
			assigned_by = EXCLUDED.assigned_by,
			updated_at = NOW()
		RETURNING`+assignmentColumns,
		assignment.CustomerID,
		assignment.Commodity,
		assignment.AgentID,
		assignment.Amount,
		assignment.Mode,
		assignment.AssignedBy,
	).Scan(&saved).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &saved, nil
}

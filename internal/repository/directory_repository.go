package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/energy-contracts/internal/model"
)

// directoryRepository reads customers and agents, which are owned by the
// demographic side of the CRM.
type directoryRepository struct {
	db *gorm.DB
}

func (r *directoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, kind, display_name, agent_id
		FROM customers
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&customer).Error; err != nil {
		return nil, err
	}
	if customer.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (r *directoryRepository) GetAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	var agent model.Agent
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, default_commission_luce, default_commission_gas
		FROM agents
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&agent).Error; err != nil {
		return nil, err
	}
	if agent.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &agent, nil
}

func (r *directoryRepository) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, default_commission_luce, default_commission_gas
		FROM agents
		ORDER BY name ASC
	`).Scan(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

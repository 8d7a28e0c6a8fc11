package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CommissionMode string

const (
	CommissionModeManual  CommissionMode = "manual"
	CommissionModeDefault CommissionMode = "default"
)

func (m CommissionMode) Valid() bool {
	return m == CommissionModeManual || m == CommissionModeDefault
}

// CommissionAssignment binds a customer, not a single contract, to an agent
// and an amount for one commodity.
type CommissionAssignment struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Commodity  Commodity       `json:"commodity"`
	AgentID    uuid.UUID       `json:"agent_id"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       CommissionMode  `json:"mode"`
	AssignedBy uuid.UUID       `json:"assigned_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/model"
)

// Amounts are stored as NUMERIC(12,2).
var (
	minCommission = decimal.New(1, -2)
	maxCommission = decimal.New(999999999999, -2)
)

// CommissionEntry is one commodity's commission as captured from the caller.
type CommissionEntry struct {
	Commodity model.Commodity
	Mode      model.CommissionMode
	Amount    *decimal.Decimal // ignored in default mode
}

// CommissionField describes the capture form for one commodity.
type CommissionField struct {
	Commodity        model.Commodity             `json:"commodity"`
	Mode             model.CommissionMode        `json:"mode"`
	Amount           *decimal.Decimal            `json:"amount,omitempty"`
	DefaultAvailable bool                        `json:"default_available"`
	Current          *model.CommissionAssignment `json:"current,omitempty"`
}

// CommissionResolver validates commissions per commodity and turns them into
// assignments. Default amounts are copied at assignment time; a later change
// of the agent's default does not touch stored assignments.
type CommissionResolver struct{}

// Field returns the form state after selecting mode for commodity. Manual
// mode clears the amount for re-entry. Default mode is populated from the
// agent's default, or falls back to manual when the agent has none.
func (CommissionResolver) Field(agent *model.Agent, commodity model.Commodity, mode model.CommissionMode) CommissionField {
	field := CommissionField{Commodity: commodity, Mode: model.CommissionModeManual}
	if agent == nil {
		return field
	}
	amount, ok := agent.DefaultCommission(commodity)
	field.DefaultAvailable = ok
	if mode == model.CommissionModeDefault && ok {
		field.Mode = model.CommissionModeDefault
		field.Amount = &amount
	}
	return field
}

// Resolve validates entries against agent and returns the assignments to
// store. Every commodity in held must be covered either by an entry or by an
// assignment in existing.
func (CommissionResolver) Resolve(
	agent model.Agent,
	customerID uuid.UUID,
	actorID uuid.UUID,
	entries []CommissionEntry,
	held []model.Commodity,
	existing []model.CommissionAssignment,
) ([]model.CommissionAssignment, error) {
	if len(entries) == 0 {
		return nil, invalid("commission", "at least one commission is required")
	}

	seen := make(map[model.Commodity]bool, len(entries))
	assignments := make([]model.CommissionAssignment, 0, len(entries))
	for _, entry := range entries {
		field := commissionField(entry.Commodity)
		if !entry.Commodity.Valid() {
			return nil, invalid("commission.commodity", "unknown commodity %q", entry.Commodity)
		}
		if seen[entry.Commodity] {
			return nil, invalid(field, "commission for %s given more than once", entry.Commodity)
		}
		seen[entry.Commodity] = true

		var amount decimal.Decimal
		switch entry.Mode {
		case model.CommissionModeDefault:
			value, ok := agent.DefaultCommission(entry.Commodity)
			if !ok {
				return nil, invalid(field+".mode", "agent %s has no default commission for %s", agent.Name, entry.Commodity)
			}
			amount = value
		case model.CommissionModeManual:
			if entry.Amount == nil {
				return nil, invalid(field, "commission amount for %s is required", entry.Commodity)
			}
			amount = *entry.Amount
		default:
			return nil, invalid(field+".mode", "mode must be %q or %q", model.CommissionModeManual, model.CommissionModeDefault)
		}

		if !amount.IsPositive() {
			return nil, invalid(field, "commission amount for %s must be greater than zero", entry.Commodity)
		}
		amount = amount.Round(2)
		if !amount.IsPositive() {
			return nil, invalid(field, "commission amount for %s is below %s", entry.Commodity, minCommission)
		}
		if amount.GreaterThan(maxCommission) {
			return nil, invalid(field, "commission amount for %s exceeds %s", entry.Commodity, maxCommission)
		}

		assignments = append(assignments, model.CommissionAssignment{
			CustomerID: customerID,
			Commodity:  entry.Commodity,
			AgentID:    agent.ID,
			Amount:     amount,
			Mode:       entry.Mode,
			AssignedBy: actorID,
		})
	}

	assigned := make(map[model.Commodity]bool, len(existing))
	for _, assignment := range existing {
		assigned[assignment.Commodity] = true
	}
	for _, commodity := range held {
		if !seen[commodity] && !assigned[commodity] {
			return nil, invalid(commissionField(commodity), "commission for %s is required: the customer holds %s contracts", commodity, commodity)
		}
	}

	return assignments, nil
}

func commissionField(commodity model.Commodity) string {
	return "commission_" + string(commodity)
}

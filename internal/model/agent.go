package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Agent struct {
	ID                    uuid.UUID        `json:"id"`
	Name                  string           `json:"name"`
	DefaultCommissionLuce *decimal.Decimal `json:"default_commission_luce,omitempty"`
	DefaultCommissionGas  *decimal.Decimal `json:"default_commission_gas,omitempty"`
}

// DefaultCommission returns the agent's default amount for the commodity, if any.
func (a Agent) DefaultCommission(commodity Commodity) (decimal.Decimal, bool) {
	var value *decimal.Decimal
	switch commodity {
	case CommodityLuce:
		value = a.DefaultCommissionLuce
	case CommodityGas:
		value = a.DefaultCommissionGas
	}
	if value == nil {
		return decimal.Zero, false
	}
	return *value, true
}

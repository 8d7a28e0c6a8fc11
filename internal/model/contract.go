package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Contract struct {
	ID           uuid.UUID        `json:"id"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	Commodity    Commodity        `json:"commodity"`
	SupplyPoint  string           `json:"supply_point"` // POD for luce, PDR for gas
	Supplier     string           `json:"supplier"`
	Procedure    Procedure        `json:"procedure"`
	Status       Status           `json:"status"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	StipulatedAt *time.Time       `json:"stipulated_at,omitempty"`
	ActivatedAt  *time.Time       `json:"activated_at,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	Note         string           `json:"note"`
	Revision     int64            `json:"revision"`
	SupersededAt *time.Time       `json:"superseded_at,omitempty"`
	SupersededBy *uuid.UUID       `json:"superseded_by,omitempty"`
	CreatedBy    uuid.UUID        `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (c Contract) Superseded() bool {
	return c.SupersededAt != nil
}

// HeldCommodities returns the commodities of the non-superseded contracts, in
// the canonical commodity order.
func HeldCommodities(contracts []Contract) []Commodity {
	held := make(map[Commodity]bool, len(Commodities))
	for _, contract := range contracts {
		if contract.Superseded() {
			continue
		}
		held[contract.Commodity] = true
	}
	result := make([]Commodity, 0, len(held))
	for _, commodity := range Commodities {
		if held[commodity] {
			result = append(result, commodity)
		}
	}
	return result
}

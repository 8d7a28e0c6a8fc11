package service

import (
	"strings"

	"github.com/nurpe/energy-contracts/internal/model"
)

// CheckDuplicate rejects identifier when one of the customer's non-superseded
// contracts of the same commodity already uses it. Comparison is on trimmed
// values and is case-sensitive. existing must belong to a single customer.
func CheckDuplicate(identifier string, commodity model.Commodity, existing []model.Contract) error {
	candidate := strings.TrimSpace(identifier)
	for _, contract := range existing {
		if contract.Superseded() || contract.Commodity != commodity {
			continue
		}
		if strings.TrimSpace(contract.SupplyPoint) == candidate {
			return &DuplicateError{
				Field:      commodity.IdentifierField(),
				Value:      candidate,
				ContractID: contract.ID,
			}
		}
	}
	return nil
}

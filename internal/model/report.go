package model

import "time"

// ContractReport gathers what the contract sheet and the history workbook
// print. Commission is nil when the customer has none for the commodity.
type ContractReport struct {
	Contract    Contract
	Customer    Customer
	Commission  *CommissionAssignment
	AgentName   string
	History     []ProcedureHistoryRecord
	GeneratedAt time.Time
}

package model

import "github.com/google/uuid"

type CustomerKind string

const (
	CustomerKindPrivate  CustomerKind = "private"
	CustomerKindBusiness CustomerKind = "business"
)

// Customer is the holder of contracts: either a private individual or a
// business, never both.
type Customer struct {
	ID          uuid.UUID    `json:"id"`
	Kind        CustomerKind `json:"kind"`
	DisplayName string       `json:"display_name"`
	AgentID     *uuid.UUID   `json:"agent_id,omitempty"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcedureHistoryRecord is an append-only entry describing one committed
// change of procedure and/or status.
type ProcedureHistoryRecord struct {
	ID                uuid.UUID  `json:"id"`
	ContractID        uuid.UUID  `json:"contract_id"`
	PreviousProcedure Procedure  `json:"previous_procedure"`
	NewProcedure      Procedure  `json:"new_procedure"`
	PreviousStatus    Status     `json:"previous_status"`
	NewStatus         Status     `json:"new_status"`
	Note              *string    `json:"note,omitempty"`
	AttachmentRef     *uuid.UUID `json:"attachment_ref,omitempty"`
	ActorID           uuid.UUID  `json:"actor_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/repository"
)

type HistoryEntry struct {
	ContractID        uuid.UUID
	PreviousProcedure model.Procedure
	NewProcedure      model.Procedure
	PreviousStatus    model.Status
	NewStatus         model.Status
	Note              *string
	AttachmentRef     *uuid.UUID
	ActorID           uuid.UUID
}

func (e HistoryEntry) Changed() bool {
	return e.PreviousProcedure != e.NewProcedure || e.PreviousStatus != e.NewStatus
}

// AuditRecorder appends procedure history. Records are never updated or
// removed once written.
type AuditRecorder struct{}

// Record appends entry when procedure or status changed and returns the
// stored record. It returns nil, nil for an unchanged entry.
func (AuditRecorder) Record(ctx context.Context, history repository.HistoryRepository, entry HistoryEntry) (*model.ProcedureHistoryRecord, error) {
	if !entry.Changed() {
		return nil, nil
	}
	return history.AppendHistory(ctx, model.ProcedureHistoryRecord{
		ContractID:        entry.ContractID,
		PreviousProcedure: entry.PreviousProcedure,
		NewProcedure:      entry.NewProcedure,
		PreviousStatus:    entry.PreviousStatus,
		NewStatus:         entry.NewStatus,
		Note:              entry.Note,
		AttachmentRef:     entry.AttachmentRef,
		ActorID:           entry.ActorID,
	})
}

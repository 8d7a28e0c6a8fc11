package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
)

// ContractRepository persists contracts. Supply points are stored trimmed.
type ContractRepository interface {
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error)
	CreateContract(ctx context.Context, contract model.Contract) (*model.Contract, error)
	// UpdateContractState sets status and procedure and bumps the revision.
	// It fails with ErrRevisionConflict when the stored revision differs from
	// expectedRevision.
	UpdateContractState(ctx context.Context, id uuid.UUID, status model.Status, procedure model.Procedure, expectedRevision int64) (*model.Contract, error)
	MarkSuperseded(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error
}

type CommissionRepository interface {
	GetAssignment(ctx context.Context, customerID uuid.UUID, commodity model.Commodity) (*model.CommissionAssignment, error)
	ListAssignments(ctx context.Context, customerID uuid.UUID) ([]model.CommissionAssignment, error)
	UpsertAssignment(ctx context.Context, assignment model.CommissionAssignment) (*model.CommissionAssignment, error)
}

// HistoryRepository is append-only: there is no update or delete.
type HistoryRepository interface {
	AppendHistory(ctx context.Context, record model.ProcedureHistoryRecord) (*model.ProcedureHistoryRecord, error)
	ListHistory(ctx context.Context, contractID uuid.UUID) ([]model.ProcedureHistoryRecord, error)
}

type DirectoryRepository interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error)
	ListAgents(ctx context.Context) ([]model.Agent, error)
}

type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	DocumentExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Repositories interface {
	ContractRepository
	CommissionRepository
	HistoryRepository
	DirectoryRepository
	DocumentRepository
}

// Store is the full persistence surface. Transaction runs fn against a
// transactional view; any error returned by fn rolls every write back.
type Store interface {
	Repositories
	Transaction(ctx context.Context, fn func(tx Repositories) error) error
}

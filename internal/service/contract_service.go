package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/config"
	"github.com/nurpe/energy-contracts/internal/model"
	"github.com/nurpe/energy-contracts/internal/repository"
)

const maxSupplyPointLength = 64

type Notifier interface {
	Notify()
}

type Metrics interface {
	ContractCreated(commodity model.Commodity)
	DuplicateRejected(commodity model.Commodity)
	TransitionCommitted(commodity model.Commodity, status model.Status)
	GateRequired(commodity model.Commodity)
	CommissionAssigned(commodity model.Commodity, mode model.CommissionMode)
	PendingAbandoned()
	PersistenceFailed(op string, retryable bool)
}

type Outcome string

const (
	OutcomeCommitted    Outcome = "committed"
	OutcomeGateRequired Outcome = "gate_required"
)

type ContractService struct {
	store       repository.Store
	notifier    Notifier
	metrics     Metrics
	log         zerolog.Logger
	stepTimeout time.Duration
	pendingTTL  time.Duration
	now         func() time.Time
	pending     *pendingRegistry
	resolver    CommissionResolver
	audit       AuditRecorder
}

type Option func(*ContractService)

func WithMetrics(metrics Metrics) Option {
	return func(s *ContractService) {
		s.metrics = metrics
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ContractService) {
		s.now = now
	}
}

func NewContractService(
	store repository.Store,
	notifier Notifier,
	cfg config.ContractsConfig,
	log zerolog.Logger,
	opts ...Option,
) *ContractService {
	s := &ContractService{
		store:       store,
		notifier:    notifier,
		metrics:     nopMetrics{},
		log:         log.With().Str("component", "contracts").Logger(),
		stepTimeout: cfg.StepTimeout,
		pendingTTL:  cfg.PendingTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pending = newPendingRegistry(s.pendingTTL, s.now)
	s.pending.onExpire = func(p PendingTransition) {
		s.metrics.PendingAbandoned()
		s.log.Info().
			Stringer("contract_id", p.ContractID).
			Time("parked_at", p.ParkedAt).
			Msg("pending transition expired")
	}
	return s
}

type CreateContractInput struct {
	CustomerID   uuid.UUID
	Commodity    model.Commodity
	SupplyPoint  string
	Supplier     string
	Procedure    model.Procedure
	Status       model.Status
	Price        *decimal.Decimal
	StipulatedAt *time.Time
	ActivatedAt  *time.Time
	ExpiresAt    *time.Time
	Note         string
	Supersedes   *uuid.UUID
	Principal    model.Principal
}

func (s *ContractService) CreateContract(ctx context.Context, input CreateContractInput) (*model.Contract, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	customer, err := s.loadCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	existing, err := s.loadCustomerContracts(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	var superseded *model.Contract
	candidates := existing
	if input.Supersedes != nil {
		superseded, candidates, err = pickSuperseded(*input.Supersedes, input.Commodity, existing)
		if err != nil {
			return nil, err
		}
		if p, ok := s.pending.get(superseded.ID); ok {
			return nil, fmt.Errorf("%w: contract %s is waiting for a %s commission", ErrTransitionPending, p.ContractID, p.Commodity)
		}
	}

	if err := CheckDuplicate(input.SupplyPoint, input.Commodity, candidates); err != nil {
		s.metrics.DuplicateRejected(input.Commodity)
		s.log.Warn().
			Stringer("customer_id", customer.ID).
			Str("commodity", string(input.Commodity)).
			Err(err).
			Msg("duplicate supply point rejected")
		return nil, err
	}

	contract := model.Contract{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		Commodity:    input.Commodity,
		SupplyPoint:  input.SupplyPoint,
		Supplier:     input.Supplier,
		Procedure:    input.Procedure,
		Status:       input.Status,
		Price:        input.Price,
		StipulatedAt: input.StipulatedAt,
		ActivatedAt:  input.ActivatedAt,
		ExpiresAt:    input.ExpiresAt,
		Note:         input.Note,
		CreatedBy:    input.Principal.UserID,
	}

	var saved *model.Contract
	err = s.step(ctx, "create contract", contract.ID, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx repository.Repositories) error {
			if superseded != nil {
				if err := tx.MarkSuperseded(ctx, superseded.ID, contract.ID, s.now()); err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return invalid("supersedes", "contract %s was superseded meanwhile", superseded.ID)
					}
					return err
				}
			}
			created, err := tx.CreateContract(ctx, contract)
			if err != nil {
				var unique *repository.UniqueViolationError
				if errors.As(err, &unique) && unique.Constraint == repository.ConstraintContractSupplyPoint {
					return &DuplicateError{Field: contract.Commodity.IdentifierField(), Value: contract.SupplyPoint}
				}
				return err
			}
			saved = created
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			s.metrics.DuplicateRejected(input.Commodity)
		}
		return nil, err
	}

	s.metrics.ContractCreated(saved.Commodity)
	event := s.log.Info().
		Stringer("contract_id", saved.ID).
		Stringer("customer_id", saved.CustomerID).
		Str("commodity", string(saved.Commodity))
	if superseded != nil {
		event = event.Stringer("supersedes", superseded.ID)
	}
	event.Msg("contract created")
	s.notifier.Notify()
	return saved, nil
}

type ChangeStatusInput struct {
	ContractID       uuid.UUID
	Status           model.Status
	Procedure        model.Procedure
	Note             *string
	AttachmentRef    *uuid.UUID
	ExpectedRevision *int64
	Principal        model.Principal
}

type TransitionResult struct {
	Outcome  Outcome                       `json:"outcome"`
	Contract *model.Contract               `json:"contract"`
	Record   *model.ProcedureHistoryRecord `json:"record,omitempty"`
	Gate     *GateRequired                 `json:"gate,omitempty"`
}

// ChangeStatusAndProcedure commits a status/procedure change, or parks it and
// returns OutcomeGateRequired when it leaves a KO status for to_activate or
// closed and the customer has no commission for the contract's commodity.
// A change that alters neither field commits without writing anything.
func (s *ContractService) ChangeStatusAndProcedure(ctx context.Context, input ChangeStatusInput) (*TransitionResult, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	if input.ContractID == uuid.Nil {
		return nil, invalid("contract_id", "is required")
	}
	if !input.Status.Valid() {
		return nil, invalid("status", "unknown status %q for contract %s", input.Status, input.ContractID)
	}
	if !input.Procedure.Valid() {
		return nil, invalid("procedure", "unknown procedure %q for contract %s", input.Procedure, input.ContractID)
	}
	note := normalizeNote(input.Note)

	if p, ok := s.pending.get(input.ContractID); ok {
		return nil, fmt.Errorf("%w: contract %s is waiting for a %s commission", ErrTransitionPending, p.ContractID, p.Commodity)
	}

	contract, err := s.loadContract(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedRevision != nil && *input.ExpectedRevision != contract.Revision {
		return nil, fmt.Errorf("%w: contract %s is at revision %d, expected %d", ErrConflict, contract.ID, contract.Revision, *input.ExpectedRevision)
	}
	if input.AttachmentRef != nil {
		if err := s.ensureDocument(ctx, contract.ID, *input.AttachmentRef); err != nil {
			return nil, err
		}
	}

	entry := HistoryEntry{
		ContractID:        contract.ID,
		PreviousProcedure: contract.Procedure,
		NewProcedure:      input.Procedure,
		PreviousStatus:    contract.Status,
		NewStatus:         input.Status,
		Note:              note,
		AttachmentRef:     input.AttachmentRef,
		ActorID:           input.Principal.UserID,
	}
	if !entry.Changed() {
		return &TransitionResult{Outcome: OutcomeCommitted, Contract: contract}, nil
	}

	if requiresCommission(contract.Status, input.Status) {
		assignment, err := s.loadAssignment(ctx, contract)
		if err != nil {
			return nil, err
		}
		if assignment == nil {
			return s.suspend(ctx, contract, entry)
		}
	}

	var result *TransitionResult
	err = s.step(ctx, "commit transition", contract.ID, func(ctx context.Context) error {
		return s.store.Transaction(ctx, func(tx repository.Repositories) error {
			updated, err := tx.UpdateContractState(ctx, contract.ID, input.Status, input.Procedure, contract.Revision)
			if err != nil {
				return err
			}
			record, err := s.audit.Record(ctx, tx, entry)
			if err != nil {
				return fmt.Errorf("append history: %w", err)
			}
			result = &TransitionResult{Outcome: OutcomeCommitted, Contract: updated, Record: record}
			return nil
		})
	})
	if err != nil {
		return nil, contractError(err, contract.ID)
	}

	s.metrics.TransitionCommitted(contract.Commodity, input.Status)
	s.log.Info().
		Stringer("contract_id", contract.ID).
		Str("from_status", string(entry.PreviousStatus)).
		Str("to_status", string(entry.NewStatus)).
		Str("from_procedure", string(entry.PreviousProcedure)).
		Str("to_procedure", string(entry.NewProcedure)).
		Stringer("actor_id", entry.ActorID).
		Msg("transition committed")
	s.notifier.Notify()
	return result, nil
}

func (s *ContractService) suspend(ctx context.Context, contract *model.Contract, entry HistoryEntry) (*TransitionResult, error) {
	customer, err := s.loadCustomer(ctx, contract.CustomerID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.loadCustomerContracts(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	currentAgent := customer.AgentID
	if currentAgent == nil {
		assignments, err := s.loadAssignments(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		if len(assignments) > 0 {
			agentID := assignments[0].AgentID
			currentAgent = &agentID
		}
	}

	parked, err := s.pending.park(PendingTransition{
		ContractID:    contract.ID,
		CustomerID:    customer.ID,
		Commodity:     contract.Commodity,
		FromStatus:    entry.PreviousStatus,
		ToStatus:      entry.NewStatus,
		FromProcedure: entry.PreviousProcedure,
		ToProcedure:   entry.NewProcedure,
		Note:          entry.Note,
		AttachmentRef: entry.AttachmentRef,
		ActorID:       entry.ActorID,
		Revision:      contract.Revision,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.GateRequired(contract.Commodity)
	s.log.Info().
		Stringer("contract_id", contract.ID).
		Stringer("customer_id", customer.ID).
		Str("commodity", string(contract.Commodity)).
		Str("to_status", string(entry.NewStatus)).
		Msg("transition waiting for commission")

	return &TransitionResult{
		Outcome:  OutcomeGateRequired,
		Contract: contract,
		Gate: &GateRequired{
			ContractID:      contract.ID,
			CustomerID:      customer.ID,
			Commodity:       contract.Commodity,
			CurrentAgentID:  currentAgent,
			HeldCommodities: model.HeldCommodities(contracts),
			FromStatus:      entry.PreviousStatus,
			ToStatus:        entry.NewStatus,
			ExpiresAt:       parked.ExpiresAt,
		},
	}, nil
}

type ResolveGateInput struct {
	CustomerID uuid.UUID
	Commodity  model.Commodity
	AgentID    uuid.UUID
	Amount     *decimal.Decimal
	Mode       model.CommissionMode
	// Additional carries commissions for the customer's other commodities
	// captured in the same step.
	Additional []CommissionEntry
	Principal  model.Principal
}

type ResolveResult struct {
	Outcome     Outcome                      `json:"outcome"`
	Assignments []model.CommissionAssignment `json:"assignments"`
	Transitions []TransitionResult           `json:"transitions"`
}

// ResolveCommissionGate stores the commission assignment(s) and commits every
// transition parked for the covered commodities of the customer. Assignments,
// status updates and history records are written in a single transaction.
func (s *ContractService) ResolveCommissionGate(ctx context.Context, input ResolveGateInput) (*ResolveResult, error) {
	if !input.Principal.CanAssignCommission() {
		return nil, ErrPermissionDenied
	}
	if input.CustomerID == uuid.Nil {
		return nil, invalid("customer_id", "is required")
	}
	if input.AgentID == uuid.Nil {
		return nil, invalid("agent_id", "is required")
	}
	if !input.Commodity.Valid() {
		return nil, invalid("commodity", "unknown commodity %q", input.Commodity)
	}

	customer, err := s.loadCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	agent, err := s.loadAgent(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.loadCustomerContracts(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	existing, err := s.loadAssignments(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	entries := append([]CommissionEntry{{Commodity: input.Commodity, Mode: input.Mode, Amount: input.Amount}}, input.Additional...)
	assignments, err := s.resolver.Resolve(*agent, customer.ID, input.Principal.UserID, entries, model.HeldCommodities(contracts), existing)
	if err != nil {
		return nil, err
	}

	covered := make(map[model.Commodity]bool, len(assignments))
	for _, assignment := range assignments {
		covered[assignment.Commodity] = true
	}
	parked := s.pending.forCustomer(customer.ID, covered)

	var (
		result ResolveResult
		stale  *PendingTransition
	)
	err = s.step(ctx, "resolve commission gate", uuid.Nil, func(ctx context.Context) error {
		result = ResolveResult{Outcome: OutcomeCommitted}
		return s.store.Transaction(ctx, func(tx repository.Repositories) error {
			for _, assignment := range assignments {
				saved, err := tx.UpsertAssignment(ctx, assignment)
				if err != nil {
					return fmt.Errorf("store %s commission: %w", assignment.Commodity, err)
				}
				result.Assignments = append(result.Assignments, *saved)
			}

			for _, p := range parked {
				current, err := tx.GetContract(ctx, p.ContractID)
				if err != nil {
					return contractError(err, p.ContractID)
				}
				if current.Revision != p.Revision {
					stale = &p
					return fmt.Errorf("%w: contract %s changed while waiting for the commission", ErrConflict, p.ContractID)
				}
				updated, err := tx.UpdateContractState(ctx, p.ContractID, p.ToStatus, p.ToProcedure, p.Revision)
				if err != nil {
					return contractError(err, p.ContractID)
				}
				record, err := s.audit.Record(ctx, tx, HistoryEntry{
					ContractID:        p.ContractID,
					PreviousProcedure: p.FromProcedure,
					NewProcedure:      p.ToProcedure,
					PreviousStatus:    p.FromStatus,
					NewStatus:         p.ToStatus,
					Note:              p.Note,
					AttachmentRef:     p.AttachmentRef,
					ActorID:           p.ActorID,
				})
				if err != nil {
					return fmt.Errorf("append history for contract %s: %w", p.ContractID, err)
				}
				result.Transitions = append(result.Transitions, TransitionResult{
					Outcome:  OutcomeCommitted,
					Contract: updated,
					Record:   record,
				})
			}
			return nil
		})
	})
	if err != nil {
		if stale != nil && s.pending.release(stale.ContractID, stale.Token) {
			s.metrics.PendingAbandoned()
		}
		return nil, err
	}

	for _, p := range parked {
		s.pending.release(p.ContractID, p.Token)
	}
	for _, assignment := range result.Assignments {
		s.metrics.CommissionAssigned(assignment.Commodity, assignment.Mode)
	}
	for _, transition := range result.Transitions {
		s.metrics.TransitionCommitted(transition.Contract.Commodity, transition.Contract.Status)
	}
	s.log.Info().
		Stringer("customer_id", customer.ID).
		Stringer("agent_id", agent.ID).
		Int("assignments", len(result.Assignments)).
		Int("transitions", len(result.Transitions)).
		Msg("commission gate resolved")
	s.notifier.Notify()
	return &result, nil
}

// AbandonTransition discards the transition parked for the contract, which
// keeps its previous status.
func (s *ContractService) AbandonTransition(ctx context.Context, contractID uuid.UUID, principal model.Principal) (*PendingTransition, error) {
	if !principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	p, ok := s.pending.get(contractID)
	if !ok || !s.pending.release(contractID, p.Token) {
		return nil, fmt.Errorf("%w: no pending transition for contract %s", ErrNotFound, contractID)
	}
	s.metrics.PendingAbandoned()
	s.log.Info().
		Stringer("contract_id", contractID).
		Stringer("actor_id", principal.UserID).
		Msg("pending transition abandoned")
	return &p, nil
}

func (s *ContractService) PendingTransition(ctx context.Context, contractID uuid.UUID) (*PendingTransition, error) {
	p, ok := s.pending.get(contractID)
	if !ok {
		return nil, fmt.Errorf("%w: no pending transition for contract %s", ErrNotFound, contractID)
	}
	return &p, nil
}

func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.loadContract(ctx, id)
}

func (s *ContractService) ListCustomerContracts(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.loadCustomerContracts(ctx, customer.ID)
}

// ListHistory returns the contract's history, most recent first.
func (s *ContractService) ListHistory(ctx context.Context, contractID uuid.UUID) ([]model.ProcedureHistoryRecord, error) {
	if _, err := s.loadContract(ctx, contractID); err != nil {
		return nil, err
	}
	var records []model.ProcedureHistoryRecord
	err := s.step(ctx, "list history", contractID, func(ctx context.Context) error {
		var err error
		records, err = s.store.ListHistory(ctx, contractID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.ProcedureHistoryRecord{}
	}
	return records, nil
}

func (s *ContractService) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	err := s.step(ctx, "list agents", uuid.Nil, func(ctx context.Context) error {
		var err error
		agents, err = s.store.ListAgents(ctx)
		return err
	})
	return agents, err
}

// CommissionForm describes the commission capture step for every commodity
// the customer holds. agentID defaults to the customer's assigned agent.
func (s *ContractService) CommissionForm(ctx context.Context, customerID uuid.UUID, agentID *uuid.UUID, mode model.CommissionMode) ([]CommissionField, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.loadCustomerContracts(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	existing, err := s.loadAssignments(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	if agentID == nil {
		agentID = customer.AgentID
	}
	var agent *model.Agent
	if agentID != nil {
		agent, err = s.loadAgent(ctx, *agentID)
		if err != nil {
			return nil, err
		}
	}
	if mode == "" {
		mode = model.CommissionModeDefault
	}

	current := make(map[model.Commodity]model.CommissionAssignment, len(existing))
	for _, assignment := range existing {
		current[assignment.Commodity] = assignment
	}

	held := model.HeldCommodities(contracts)
	fields := make([]CommissionField, 0, len(held))
	for _, commodity := range held {
		field := s.resolver.Field(agent, commodity, mode)
		if assignment, ok := current[commodity]; ok {
			assignment := assignment
			field.Current = &assignment
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// step runs one persistence step under the configured timeout. Storage
// failures come back as *PersistenceError; domain errors pass through.
func (s *ContractService) step(ctx context.Context, op string, contractID uuid.UUID, fn func(ctx context.Context) error) error {
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil || isDomainError(err) {
		return err
	}

	retryable := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.PersistenceFailed(op, retryable)
	event := s.log.Error().Err(err).Str("op", op).Bool("retryable", retryable)
	if contractID != uuid.Nil {
		event = event.Stringer("contract_id", contractID)
	}
	event.Msg("persistence step failed")
	return &PersistenceError{Op: op, ContractID: contractID, Retryable: retryable, Err: err}
}

func isDomainError(err error) bool {
	var unique *repository.UniqueViolationError
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrRevisionConflict) ||
		errors.As(err, &unique) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTransitionPending)
}

func contractError(err error, contractID uuid.UUID) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("contract", contractID)
	case errors.Is(err, repository.ErrRevisionConflict):
		return fmt.Errorf("%w: contract %s", ErrConflict, contractID)
	default:
		return err
	}
}

func (s *ContractService) loadContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract *model.Contract
	err := s.step(ctx, "load contract", id, func(ctx context.Context) error {
		var err error
		contract, err = s.store.GetContract(ctx, id)
		return err
	})
	if err != nil {
		return nil, contractError(err, id)
	}
	return contract, nil
}

func (s *ContractService) loadCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer *model.Customer
	err := s.step(ctx, "load customer", uuid.Nil, func(ctx context.Context) error {
		var err error
		customer, err = s.store.GetCustomer(ctx, id)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("customer", id)
	}
	return customer, err
}

func (s *ContractService) loadAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	var agent *model.Agent
	err := s.step(ctx, "load agent", uuid.Nil, func(ctx context.Context) error {
		var err error
		agent, err = s.store.GetAgent(ctx, id)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("agent", id)
	}
	return agent, err
}

func (s *ContractService) loadCustomerContracts(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	var contracts []model.Contract
	err := s.step(ctx, "load customer contracts", uuid.Nil, func(ctx context.Context) error {
		var err error
		contracts, err = s.store.ListContractsByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if contracts == nil {
		contracts = []model.Contract{}
	}
	return contracts, nil
}

func (s *ContractService) loadAssignments(ctx context.Context, customerID uuid.UUID) ([]model.CommissionAssignment, error) {
	var assignments []model.CommissionAssignment
	err := s.step(ctx, "load commission assignments", uuid.Nil, func(ctx context.Context) error {
		var err error
		assignments, err = s.store.ListAssignments(ctx, customerID)
		return err
	})
	return assignments, err
}

// loadAssignment returns nil, nil when the customer has no assignment for
// the contract's commodity.
func (s *ContractService) loadAssignment(ctx context.Context, contract *model.Contract) (*model.CommissionAssignment, error) {
	var assignment *model.CommissionAssignment
	err := s.step(ctx, "load commission assignment", contract.ID, func(ctx context.Context) error {
		var err error
		assignment, err = s.store.GetAssignment(ctx, contract.CustomerID, contract.Commodity)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return assignment, err
}

func (s *ContractService) ensureDocument(ctx context.Context, contractID, ref uuid.UUID) error {
	var exists bool
	err := s.step(ctx, "check attachment", contractID, func(ctx context.Context) error {
		var err error
		exists, err = s.store.DocumentExists(ctx, ref)
		return err
	})
	if err != nil {
		return err
	}
	if !exists {
		return notFound("document", ref)
	}
	return nil
}

func validateCreate(input *CreateContractInput) error {
	if input.CustomerID == uuid.Nil {
		return invalid("customer_id", "is required")
	}
	if !input.Commodity.Valid() {
		return invalid("commodity", "unknown commodity %q", input.Commodity)
	}

	field := input.Commodity.IdentifierField()
	input.SupplyPoint = strings.TrimSpace(input.SupplyPoint)
	if input.SupplyPoint == "" {
		return invalid(field, "is required")
	}
	if len(input.SupplyPoint) > maxSupplyPointLength {
		return invalid(field, "must be at most %d characters", maxSupplyPointLength)
	}

	input.Supplier = strings.TrimSpace(input.Supplier)
	if input.Supplier == "" {
		return invalid("supplier", "is required")
	}
	if !input.Procedure.Valid() {
		return invalid("procedure", "unknown procedure %q", input.Procedure)
	}
	if input.Status == "" {
		input.Status = model.StatusInCompilation
	}
	if !input.Status.Valid() {
		return invalid("status", "unknown status %q", input.Status)
	}
	if input.Price != nil && input.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	if input.StipulatedAt != nil && input.ExpiresAt != nil && input.ExpiresAt.Before(*input.StipulatedAt) {
		return invalid("expires_at", "must not be before stipulated_at")
	}
	input.Note = strings.TrimSpace(input.Note)
	return nil
}

// pickSuperseded finds the contract being replaced and returns the remaining
// contracts the duplicate check must consider.
func pickSuperseded(id uuid.UUID, commodity model.Commodity, existing []model.Contract) (*model.Contract, []model.Contract, error) {
	var target *model.Contract
	rest := make([]model.Contract, 0, len(existing))
	for i := range existing {
		if existing[i].ID == id {
			target = &existing[i]
			continue
		}
		rest = append(rest, existing[i])
	}
	switch {
	case target == nil:
		return nil, nil, invalid("supersedes", "contract %s does not belong to this customer", id)
	case target.Commodity != commodity:
		return nil, nil, invalid("supersedes", "contract %s is a %s contract", id, target.Commodity)
	case target.Superseded():
		return nil, nil, invalid("supersedes", "contract %s is already superseded", id)
	}
	return target, rest, nil
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type nopMetrics struct{}

func (nopMetrics) ContractCreated(model.Commodity) {}
func (nopMetrics) DuplicateRejected(model.Commodity) {}
func (nopMetrics) TransitionCommitted(model.Commodity, model.Status) {}
func (nopMetrics) GateRequired(model.Commodity) {}
func (nopMetrics) CommissionAssigned(model.Commodity, model.CommissionMode) {}
func (nopMetrics) PendingAbandoned() {}
func (nopMetrics) PersistenceFailed(string, bool) {}

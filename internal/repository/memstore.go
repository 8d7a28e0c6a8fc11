package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/energy-contracts/internal/model"
)

// MemoryStore is an in-process Store. Transactions work on a clone of the
// state which replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for created/updated timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.state.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{state: newMemState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCustomer registers a customer in the directory.
func (s *MemoryStore) AddCustomer(customer model.Customer) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	s.state.customers[customer.ID] = customer
	return customer
}

// AddAgent registers an agent in the directory.
func (s *MemoryStore) AddAgent(agent model.Agent) model.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agent.ID == uuid.Nil {
		agent.ID = uuid.New()
	}
	s.state.agents[agent.ID] = agent
	return agent
}

// SetAgentDefault changes an agent's default commission. Existing assignments
// copied from the previous default are left untouched.
func (s *MemoryStore) SetAgentDefault(agentID uuid.UUID, commodity model.Commodity, amount *decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent, ok := s.state.agents[agentID]
	if !ok {
		return
	}
	switch commodity {
	case model.CommodityLuce:
		agent.DefaultCommissionLuce = amount
	case model.CommodityGas:
		agent.DefaultCommissionGas = amount
	}
	s.state.agents[agentID] = agent
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.state.clone()
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetContract(ctx, id)
}

func (s *MemoryStore) ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListContractsByCustomer(ctx, customerID)
}

func (s *MemoryStore) CreateContract(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateContract(ctx, contract)
}

func (s *MemoryStore) UpdateContractState(ctx context.Context, id uuid.UUID, status model.Status, procedure model.Procedure, expectedRevision int64) (*model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateContractState(ctx, id, status, procedure, expectedRevision)
}

func (s *MemoryStore) MarkSuperseded(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.MarkSuperseded(ctx, id, by, at)
}

func (s *MemoryStore) GetAssignment(ctx context.Context, customerID uuid.UUID, commodity model.Commodity) (*model.CommissionAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetAssignment(ctx, customerID, commodity)
}

func (s *MemoryStore) ListAssignments(ctx context.Context, customerID uuid.UUID) ([]model.CommissionAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAssignments(ctx, customerID)
}

func (s *MemoryStore) UpsertAssignment(ctx context.Context, assignment model.CommissionAssignment) (*model.CommissionAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertAssignment(ctx, assignment)
}

func (s *MemoryStore) AppendHistory(ctx context.Context, record model.ProcedureHistoryRecord) (*model.ProcedureHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AppendHistory(ctx, record)
}

func (s *MemoryStore) ListHistory(ctx context.Context, contractID uuid.UUID) ([]model.ProcedureHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListHistory(ctx, contractID)
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetCustomer(ctx, id)
}

func (s *MemoryStore) GetAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetAgent(ctx, id)
}

func (s *MemoryStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAgents(ctx)
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateDocument(ctx, doc)
}

func (s *MemoryStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetDocument(ctx, id)
}

func (s *MemoryStore) DocumentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DocumentExists(ctx, id)
}

type assignmentKey struct {
	customerID uuid.UUID
	commodity  model.Commodity
}

type memState struct {
	now         func() time.Time
	contracts   map[uuid.UUID]model.Contract
	assignments map[assignmentKey]model.CommissionAssignment
	history     map[uuid.UUID][]model.ProcedureHistoryRecord
	customers   map[uuid.UUID]model.Customer
	agents      map[uuid.UUID]model.Agent
	documents   map[uuid.UUID]model.Document
}

func newMemState() *memState {
	return &memState{
		now:         time.Now,
		contracts:   make(map[uuid.UUID]model.Contract),
		assignments: make(map[assignmentKey]model.CommissionAssignment),
		history:     make(map[uuid.UUID][]model.ProcedureHistoryRecord),
		customers:   make(map[uuid.UUID]model.Customer),
		agents:      make(map[uuid.UUID]model.Agent),
		documents:   make(map[uuid.UUID]model.Document),
	}
}

func (m *memState) clone() *memState {
	c := newMemState()
	c.now = m.now
	for k, v := range m.contracts {
		c.contracts[k] = v
	}
	for k, v := range m.assignments {
		c.assignments[k] = v
	}
	for k, v := range m.history {
		c.history[k] = append([]model.ProcedureHistoryRecord(nil), v...)
	}
	for k, v := range m.customers {
		c.customers[k] = v
	}
	for k, v := range m.agents {
		c.agents[k] = v
	}
	for k, v := range m.documents {
		c.documents[k] = v
	}
	return c
}

func (m *memState) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &contract, nil
}

func (m *memState) ListContractsByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []model.Contract
	for _, contract := range m.contracts {
		if contract.CustomerID == customerID {
			result = append(result, contract)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memState) CreateContract(ctx context.Context, contract model.Contract) (*model.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract.SupplyPoint = strings.TrimSpace(contract.SupplyPoint)
	for _, existing := range m.contracts {
		if existing.SupersededAt == nil &&
			existing.CustomerID == contract.CustomerID &&
			existing.Commodity == contract.Commodity &&
			existing.SupplyPoint == contract.SupplyPoint {
			return nil, &UniqueViolationError{Constraint: ConstraintContractSupplyPoint, Err: ErrDuplicateKey}
		}
	}
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	if _, ok := m.contracts[contract.ID]; ok {
		return nil, &UniqueViolationError{Constraint: "contracts_pkey", Err: ErrDuplicateKey}
	}
	now := m.now()
	contract.Revision = 1
	contract.CreatedAt = now
	contract.UpdatedAt = now
	m.contracts[contract.ID] = contract
	return &contract, nil
}

func (m *memState) UpdateContractState(ctx context.Context, id uuid.UUID, status model.Status, procedure model.Procedure, expectedRevision int64) (*model.Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if contract.Revision != expectedRevision {
		return nil, ErrRevisionConflict
	}
	contract.Status = status
	contract.Procedure = procedure
	contract.Revision++
	contract.UpdatedAt = m.now()
	m.contracts[id] = contract
	return &contract, nil
}

func (m *memState) MarkSuperseded(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	contract, ok := m.contracts[id]
	if !ok || contract.SupersededAt != nil {
		return ErrNotFound
	}
	contract.SupersededAt = &at
	contract.SupersededBy = &by
	contract.Revision++
	contract.UpdatedAt = m.now()
	m.contracts[id] = contract
	return nil
}

func (m *memState) GetAssignment(ctx context.Context, customerID uuid.UUID, commodity model.Commodity) (*model.CommissionAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignment, ok := m.assignments[assignmentKey{customerID, commodity}]
	if !ok {
		return nil, ErrNotFound
	}
	return &assignment, nil
}

func (m *memState) ListAssignments(ctx context.Context, customerID uuid.UUID) ([]model.CommissionAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []model.CommissionAssignment
	for _, commodity := range model.Commodities {
		if assignment, ok := m.assignments[assignmentKey{customerID, commodity}]; ok {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (m *memState) UpsertAssignment(ctx context.Context, assignment model.CommissionAssignment) (*model.CommissionAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := assignmentKey{assignment.CustomerID, assignment.Commodity}
	now := m.now()
	if existing, ok := m.assignments[key]; ok {
		assignment.ID = existing.ID
		assignment.CreatedAt = existing.CreatedAt
	} else {
		assignment.ID = uuid.New()
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	m.assignments[key] = assignment
	return &assignment, nil
}

func (m *memState) AppendHistory(ctx context.Context, record model.ProcedureHistoryRecord) (*model.ProcedureHistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record.ID = uuid.New()
	record.CreatedAt = m.now()
	m.history[record.ContractID] = append(m.history[record.ContractID], record)
	return &record, nil
}

// ListHistory returns the records of a contract, most recent first. Records
// appended later win ties on equal timestamps.
func (m *memState) ListHistory(ctx context.Context, contractID uuid.UUID) ([]model.ProcedureHistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := m.history[contractID]
	result := make([]model.ProcedureHistoryRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		result = append(result, stored[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memState) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	customer, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &customer, nil
}

func (m *memState) GetAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	agent, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &agent, nil
}

func (m *memState) ListAgents(ctx context.Context) ([]model.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]model.Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		result = append(result, agent)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *memState) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc.ID = uuid.New()
	doc.Size = int64(len(doc.Content))
	doc.Content = append([]byte(nil), doc.Content...)
	doc.CreatedAt = m.now()
	m.documents[doc.ID] = doc
	saved := doc
	saved.Content = nil
	return &saved, nil
}

func (m *memState) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc.Content = append([]byte(nil), doc.Content...)
	return &doc, nil
}

func (m *memState) DocumentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := m.documents[id]
	return ok, nil
}

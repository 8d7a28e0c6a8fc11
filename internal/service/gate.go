package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
)

// GateRequired is returned instead of committing a transition that needs a
// commission assignment first. It is a suspension point, not a failure.
type GateRequired struct {
	ContractID      uuid.UUID         `json:"contract_id"`
	CustomerID      uuid.UUID         `json:"customer_id"`
	Commodity       model.Commodity   `json:"commodity"`
	CurrentAgentID  *uuid.UUID        `json:"current_agent_id,omitempty"`
	HeldCommodities []model.Commodity `json:"held_commodities"`
	FromStatus      model.Status      `json:"from_status"`
	ToStatus        model.Status      `json:"to_status"`
	ExpiresAt       time.Time         `json:"expires_at"`
}

// requiresCommission is the single rule restricting otherwise free
// transitions: leaving a KO status for to_activate or closed.
func requiresCommission(from, to model.Status) bool {
	return from.IsKO() && to.RequiresCommission()
}

// PendingTransition is a transition parked behind the commission gate.
type PendingTransition struct {
	Token         uuid.UUID       `json:"token"`
	ContractID    uuid.UUID       `json:"contract_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Commodity     model.Commodity `json:"commodity"`
	FromStatus    model.Status    `json:"from_status"`
	ToStatus      model.Status    `json:"to_status"`
	FromProcedure model.Procedure `json:"from_procedure"`
	ToProcedure   model.Procedure `json:"to_procedure"`
	Note          *string         `json:"note,omitempty"`
	AttachmentRef *uuid.UUID      `json:"attachment_ref,omitempty"`
	ActorID       uuid.UUID       `json:"actor_id"`
	Revision      int64           `json:"revision"`
	ParkedAt      time.Time       `json:"parked_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// pendingRegistry holds at most one parked transition per contract. It is
// process-local; a restart abandons every parked transition.
type pendingRegistry struct {
	mu         sync.Mutex
	byContract map[uuid.UUID]PendingTransition
	ttl        time.Duration
	now        func() time.Time
	onExpire   func(PendingTransition)
}

func newPendingRegistry(ttl time.Duration, now func() time.Time) *pendingRegistry {
	return &pendingRegistry{
		byContract: make(map[uuid.UUID]PendingTransition),
		ttl:        ttl,
		now:        now,
	}
}

func (r *pendingRegistry) park(p PendingTransition) (PendingTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	if existing, ok := r.byContract[p.ContractID]; ok {
		return existing, fmt.Errorf("%w: contract %s is waiting for a %s commission", ErrTransitionPending, p.ContractID, existing.Commodity)
	}
	p.Token = uuid.New()
	p.ParkedAt = r.now()
	p.ExpiresAt = p.ParkedAt.Add(r.ttl)
	r.byContract[p.ContractID] = p
	return p, nil
}

func (r *pendingRegistry) get(contractID uuid.UUID) (PendingTransition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(contractID)
}

// forCustomer returns the live transitions of the customer whose commodity is
// in commodities, oldest first.
func (r *pendingRegistry) forCustomer(customerID uuid.UUID, commodities map[model.Commodity]bool) []PendingTransition {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	var result []PendingTransition
	for _, p := range r.byContract {
		if p.CustomerID == customerID && commodities[p.Commodity] {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ParkedAt.Before(result[j].ParkedAt)
	})
	return result
}

// release drops the transition if it is still the one identified by token.
func (r *pendingRegistry) release(contractID, token uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byContract[contractID]
	if !ok || p.Token != token {
		return false
	}
	delete(r.byContract, contractID)
	return true
}

// sweepLocked drops every expired transition, whoever it belongs to.
func (r *pendingRegistry) sweepLocked() {
	for contractID := range r.byContract {
		r.lookupLocked(contractID)
	}
}

func (r *pendingRegistry) lookupLocked(contractID uuid.UUID) (PendingTransition, bool) {
	p, ok := r.byContract[contractID]
	if !ok {
		return PendingTransition{}, false
	}
	if r.ttl > 0 && !r.now().Before(p.ExpiresAt) {
		delete(r.byContract, contractID)
		if r.onExpire != nil {
			r.onExpire(p)
		}
		return PendingTransition{}, false
	}
	return p, true
}

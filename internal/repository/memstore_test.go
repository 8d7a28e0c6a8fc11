package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
)

func newContract(customerID uuid.UUID, commodity model.Commodity, supplyPoint string) model.Contract {
	return model.Contract{
		CustomerID:  customerID,
		Commodity:   commodity,
		SupplyPoint: supplyPoint,
		Supplier:    "Enel Energia",
		Procedure:   model.ProcedureSwitch,
		Status:      model.StatusInCompilation,
	}
}

func TestMemoryStoreTrimsAndRejectsDuplicateSupplyPoint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	customerID := uuid.New()

	saved, err := store.CreateContract(ctx, newContract(customerID, model.CommodityLuce, "  IT001E12345678 "))
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if saved.SupplyPoint != "IT001E12345678" {
		t.Fatalf("expected trimmed supply point, got %q", saved.SupplyPoint)
	}
	if saved.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", saved.Revision)
	}

	_, err = store.CreateContract(ctx, newContract(customerID, model.CommodityLuce, "IT001E12345678"))
	var unique *UniqueViolationError
	if !errors.As(err, &unique) || unique.Constraint != ConstraintContractSupplyPoint {
		t.Fatalf("expected unique violation, got %v", err)
	}

	if _, err := store.CreateContract(ctx, newContract(customerID, model.CommodityGas, "IT001E12345678")); err != nil {
		t.Fatalf("same identifier on another commodity should be accepted: %v", err)
	}
	if _, err := store.CreateContract(ctx, newContract(uuid.New(), model.CommodityLuce, "IT001E12345678")); err != nil {
		t.Fatalf("same identifier on another customer should be accepted: %v", err)
	}
}

func TestMemoryStoreSupersededFreesSupplyPoint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	customerID := uuid.New()

	old, err := store.CreateContract(ctx, newContract(customerID, model.CommodityGas, "00881234567890"))
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if err := store.MarkSuperseded(ctx, old.ID, uuid.New(), time.Now()); err != nil {
		t.Fatalf("mark superseded: %v", err)
	}
	if _, err := store.CreateContract(ctx, newContract(customerID, model.CommodityGas, "00881234567890")); err != nil {
		t.Fatalf("superseded identifier should be reusable: %v", err)
	}
	if err := store.MarkSuperseded(ctx, old.ID, uuid.New(), time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("superseding twice should fail with not found, got %v", err)
	}
}

func TestMemoryStoreRevisionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saved, err := store.CreateContract(ctx, newContract(uuid.New(), model.CommodityLuce, "IT001E00000001"))
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	updated, err := store.UpdateContractState(ctx, saved.ID, model.StatusActive, model.ProcedureSwitch, 1)
	if err != nil {
		t.Fatalf("update contract: %v", err)
	}
	if updated.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", updated.Revision)
	}

	if _, err := store.UpdateContractState(ctx, saved.ID, model.StatusClosed, model.ProcedureSwitch, 1); !errors.Is(err, ErrRevisionConflict) {
		t.Fatalf("expected revision conflict, got %v", err)
	}
	if _, err := store.UpdateContractState(ctx, uuid.New(), model.StatusClosed, model.ProcedureSwitch, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saved, err := store.CreateContract(ctx, newContract(uuid.New(), model.CommodityLuce, "IT001E00000002"))
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	boom := errors.New("boom")
	err = store.Transaction(ctx, func(tx Repositories) error {
		if _, err := tx.UpdateContractState(ctx, saved.ID, model.StatusClosed, model.ProcedureVoltura, saved.Revision); err != nil {
			return err
		}
		if _, err := tx.AppendHistory(ctx, model.ProcedureHistoryRecord{ContractID: saved.ID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	current, err := store.GetContract(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if current.Status != model.StatusInCompilation || current.Revision != 1 {
		t.Fatalf("transaction leaked writes: %+v", current)
	}
	history, err := store.ListHistory(ctx, saved.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history after rollback, got %d", len(history))
	}
}

func TestMemoryStoreHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store := NewMemoryStore(WithMemoryClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	contractID := uuid.New()

	statuses := []model.Status{model.StatusDocumentsToValidate, model.StatusCreditCheckKO, model.StatusClosed}
	for _, status := range statuses {
		if _, err := store.AppendHistory(ctx, model.ProcedureHistoryRecord{ContractID: contractID, NewStatus: status}); err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	history, err := store.ListHistory(ctx, contractID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	if history[0].NewStatus != model.StatusClosed || history[2].NewStatus != model.StatusDocumentsToValidate {
		t.Fatalf("unexpected order: %v, %v, %v", history[0].NewStatus, history[1].NewStatus, history[2].NewStatus)
	}
}

func TestMemoryStoreUpsertKeepsSingleAssignment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	customerID := uuid.New()

	first, err := store.UpsertAssignment(ctx, model.CommissionAssignment{CustomerID: customerID, Commodity: model.CommodityGas, AgentID: uuid.New()})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := store.UpsertAssignment(ctx, model.CommissionAssignment{CustomerID: customerID, Commodity: model.CommodityGas, AgentID: uuid.New()})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert should keep the assignment id")
	}
	list, err := store.ListAssignments(ctx, customerID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(list) != 1 || list[0].AgentID != second.AgentID {
		t.Fatalf("unexpected assignments: %+v", list)
	}
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	if _, err := store.GetContract(ctx, uuid.New()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

package engine

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/models"
)

func newTestOrchestrator(store *memStore) *Orchestrator {
	return NewOrchestrator(store, NewEngine(store, nil))
}

func (m *memStore) freeze(activationID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.activations[activationID]
	a.IsComplete = true
	a.Status = models.ActivationFrozen
	m.activations[activationID] = a
}

func TestBuyLevel_UnknownLevel(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	if _, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 7); !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("err = %v, want ErrLevelNotFound", err)
	}
	if _, err := orch.BuyLevel(context.Background(), user.ID, "9p", 1); !errors.Is(err, ErrLevelNotFound) {
		t.Fatalf("err = %v, want ErrLevelNotFound", err)
	}
}

func TestBuyLevel_EnforcesSequentialPurchase(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	_, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 2)
	if !errors.Is(err, ErrSequenceViolation) {
		t.Fatalf("err = %v, want ErrSequenceViolation", err)
	}
	if store.activationCount() != 0 {
		t.Errorf("no activation expected after a rejected purchase")
	}

	// buying an already-held level is also out of sequence
	if _, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 1); err != nil {
		t.Fatalf("BuyLevel 1: %v", err)
	}
	if _, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 1); !errors.Is(err, ErrSequenceViolation) {
		t.Fatalf("repurchase err = %v, want ErrSequenceViolation", err)
	}
}

func TestBuyLevel_RequiresPriorLevelCycles(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	l1 := threePlanLevel(t, 1)
	store.addActivation(user.ID, l1, 1, 0)

	_, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 2)
	if !errors.Is(err, ErrPriorLevelIncomplete) {
		t.Fatalf("err = %v, want ErrPriorLevelIncomplete", err)
	}
}

func TestBuyLevel_UnlocksAfterPriorLevelCompletes(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	l1 := threePlanLevel(t, 1)
	store.addActivation(user.ID, l1, 2, l1.CyclesToFreeze)

	act, err := orch.BuyLevel(context.Background(), user.ID, models.PlanThree, 2)
	if err != nil {
		t.Fatalf("BuyLevel: %v", err)
	}
	if act.LevelNumber != 2 || act.Cycle != 1 {
		t.Errorf("activation = level %d cycle %d, want level 2 cycle 1", act.LevelNumber, act.Cycle)
	}
	if len(act.Slots) != 3 {
		t.Errorf("slots = %d, want 3", len(act.Slots))
	}
}

func TestBuyLevel_RootBuyerGetsActivationWithoutDistribution(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	act, err := orch.BuyLevel(context.Background(), user.ID, models.PlanSix, 1)
	if err != nil {
		t.Fatalf("BuyLevel: %v", err)
	}
	if act == nil || act.ID.IsZero() {
		t.Fatalf("expected a persisted activation, got %+v", act)
	}
	if store.fillCalls != 0 {
		t.Errorf("no slots should be filled when the buyer has no upliner")
	}
}

func TestBuyLevel_DistributesToUpliner(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	root := store.addUser("ROOT", "")
	buyer := store.addUser("BUYER", root.ReferralCode)

	l1 := threePlanLevel(t, 1)
	rootAct := store.addActivation(root.ID, l1, 1, 0)

	if _, err := orch.BuyLevel(context.Background(), buyer.ID, models.PlanThree, 1); err != nil {
		t.Fatalf("BuyLevel: %v", err)
	}
	if got := store.getActivation(rootAct.ID).Slots[0].Status; got != models.SlotPaidDirect {
		t.Errorf("root slot 0 = %q, want %q", got, models.SlotPaidDirect)
	}
	if balance := store.getUser(root.ID).WalletBalance; balance != l1.Price {
		t.Errorf("root wallet = %v, want %v", balance, l1.Price)
	}
}

func TestRecycleLevel_RejectsActiveLevels(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	// never purchased
	if _, err := orch.RecycleLevel(context.Background(), user.ID, models.PlanThree, 1); !errors.Is(err, ErrNotFrozen) {
		t.Fatalf("err = %v, want ErrNotFrozen", err)
	}

	// purchased but still active
	l1 := threePlanLevel(t, 1)
	store.addActivation(user.ID, l1, 1, 0)
	if _, err := orch.RecycleLevel(context.Background(), user.ID, models.PlanThree, 1); !errors.Is(err, ErrNotFrozen) {
		t.Fatalf("err = %v, want ErrNotFrozen", err)
	}
	if store.activationCount() != 1 {
		t.Errorf("no activation should be inserted by a rejected recycle")
	}
}

func TestRecycleLevel_ReopensFrozenLevel(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	l1 := threePlanLevel(t, 1)
	frozen := store.addActivation(user.ID, l1, 2, l1.CyclesToFreeze)
	store.freeze(frozen.ID)

	act, err := orch.RecycleLevel(context.Background(), user.ID, models.PlanThree, 1)
	if err != nil {
		t.Fatalf("RecycleLevel: %v", err)
	}
	if act.Cycle != 3 {
		t.Errorf("cycle = %d, want 3", act.Cycle)
	}
	if act.CompletedCycles != 0 {
		t.Errorf("completedCycles = %d, want 0 after recycle", act.CompletedCycles)
	}
	if act.Status != models.ActivationActive || act.IsComplete {
		t.Errorf("recycled activation should be active and incomplete, got %+v", act)
	}

	// the recycled cycle becomes the current one
	current, err := store.FindCurrentCycle(context.Background(), user.ID, models.PlanThree, 1)
	if err != nil || current == nil {
		t.Fatalf("FindCurrentCycle after recycle: %v, err=%v", current, err)
	}
	if current.Cycle != 3 {
		t.Errorf("current cycle = %d, want 3", current.Cycle)
	}
}

func TestListMyActivations_OrderedByLevelThenCycle(t *testing.T) {
	store := newMemStore()
	orch := newTestOrchestrator(store)
	user := store.addUser("ROOT", "")

	l1 := threePlanLevel(t, 1)
	l2 := threePlanLevel(t, 2)
	store.addActivation(user.ID, l2, 1, 0)
	store.addActivation(user.ID, l1, 2, 1)
	store.addActivation(user.ID, l1, 1, 1)

	out, err := orch.ListMyActivations(context.Background(), user.ID, models.PlanThree)
	if err != nil {
		t.Fatalf("ListMyActivations: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []struct{ level, cycle int }{{1, 1}, {1, 2}, {2, 1}}
	for i, w := range want {
		if out[i].LevelNumber != w.level || out[i].Cycle != w.cycle {
			t.Errorf("out[%d] = level %d cycle %d, want level %d cycle %d",
				i, out[i].LevelNumber, out[i].Cycle, w.level, w.cycle)
		}
	}
}

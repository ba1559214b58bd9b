package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/models"
)

// memStore is an in-memory Store with the same observable semantics as
// the Mongo implementation: conditional slot fills, duplicate-cycle
// rejection, copies returned from reads.
type memStore struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]models.User
	activations map[primitive.ObjectID]models.Activation
	nextJoin    time.Time

	// failFills injects ErrSlotAlreadyFilled into the next N FillSlot
	// calls to simulate lost races.
	failFills int
	fillCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[primitive.ObjectID]models.User),
		activations: make(map[primitive.ObjectID]models.Activation),
		nextJoin:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addUser(referralCode, referredBy string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextJoin = m.nextJoin.Add(time.Minute)
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        referralCode + "@example.com",
		FullName:     referralCode,
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
		IsActive:     true,
		CreatedAt:    m.nextJoin,
	}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) addActivation(userID primitive.ObjectID, level models.LevelDefinition, cycle, completedCycles int) *models.Activation {
	a := models.NewActivation(userID, level, cycle, completedCycles)
	a.ID = primitive.NewObjectID()
	m.mu.Lock()
	m.activations[a.ID] = a
	m.mu.Unlock()
	return &a
}

// prefill marks the first n slots of an activation as already paid so
// that the next empty slot is n.
func (m *memStore) prefill(activationID primitive.ObjectID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.activations[activationID]
	filler := primitive.NewObjectID()
	for i := 0; i < n; i++ {
		a.Slots[i] = models.Slot{FilledBy: &filler, Status: models.SlotPaidDirect}
	}
	m.activations[activationID] = a
}

func (m *memStore) getUser(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) getActivation(id primitive.ObjectID) models.Activation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activations[id]
}

func (m *memStore) activationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activations)
}

func (m *memStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id.Hex())
	}
	cp := u
	return &cp, nil
}

func (m *memStore) FindUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreditWallet(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID.Hex())
	}
	u.WalletBalance += amount
	m.users[userID] = u
	return nil
}

func (m *memStore) ListDirectDownline(ctx context.Context, referralCode string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.ReferredBy == referralCode {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) FindCurrentCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Activation
	for _, a := range m.activations {
		if a.UserID != userID || a.PackageName != packageName || a.LevelNumber != levelNumber {
			continue
		}
		if a.Status != models.ActivationActive || a.IsComplete {
			continue
		}
		if best == nil || a.Cycle > best.Cycle {
			cp := cloneActivation(a)
			best = &cp
		}
	}
	return best, nil
}

func (m *memStore) FindLatestCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Activation
	for _, a := range m.activations {
		if a.UserID != userID || a.PackageName != packageName || a.LevelNumber != levelNumber {
			continue
		}
		if best == nil || a.Cycle > best.Cycle {
			cp := cloneActivation(a)
			best = &cp
		}
	}
	return best, nil
}

func (m *memStore) ListActivations(ctx context.Context, userID primitive.ObjectID, packageName string) ([]models.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Activation
	for _, a := range m.activations {
		if a.UserID == userID && a.PackageName == packageName {
			out = append(out, cloneActivation(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LevelNumber != out[j].LevelNumber {
			return out[i].LevelNumber < out[j].LevelNumber
		}
		return out[i].Cycle < out[j].Cycle
	})
	return out, nil
}

func (m *memStore) InsertActivation(ctx context.Context, activation *models.Activation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.activations {
		if a.UserID == activation.UserID && a.PackageName == activation.PackageName &&
			a.LevelNumber == activation.LevelNumber && a.Cycle == activation.Cycle {
			return fmt.Errorf("%w: cycle %d", ErrDuplicateCycle, activation.Cycle)
		}
	}
	activation.ID = primitive.NewObjectID()
	m.activations[activation.ID] = cloneActivation(*activation)
	return nil
}

func (m *memStore) FillSlot(ctx context.Context, activationID primitive.ObjectID, slotIndex int, slot models.Slot, completion *CycleCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fillCalls++
	if m.failFills > 0 {
		m.failFills--
		return ErrSlotAlreadyFilled
	}
	a, ok := m.activations[activationID]
	if !ok {
		return ErrSlotAlreadyFilled
	}
	if a.Slots[slotIndex].Status != models.SlotEmpty {
		return ErrSlotAlreadyFilled
	}
	a.Slots[slotIndex] = slot
	if completion != nil {
		a.IsComplete = true
		a.CompletedCycles = completion.CompletedCycles
		a.Status = completion.Status
	}
	m.activations[activationID] = a
	return nil
}

func cloneActivation(a models.Activation) models.Activation {
	slots := make([]models.Slot, len(a.Slots))
	copy(slots, a.Slots)
	a.Slots = slots
	return a
}

// recordingNotifier captures engine notifications for assertions
type recordingNotifier struct {
	mu      sync.Mutex
	credits []creditEvent
	cycles  []cycleEvent
}

type creditEvent struct {
	userID primitive.ObjectID
	amount float64
}

type cycleEvent struct {
	userID primitive.ObjectID
	cycle  int
	frozen bool
}

func (n *recordingNotifier) NotifyWalletCredit(userID primitive.ObjectID, amount float64, level models.LevelDefinition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.credits = append(n.credits, creditEvent{userID: userID, amount: amount})
}

func (n *recordingNotifier) NotifyCycleComplete(userID primitive.ObjectID, level models.LevelDefinition, cycle int, frozen bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cycles = append(n.cycles, cycleEvent{userID: userID, cycle: cycle, frozen: frozen})
}

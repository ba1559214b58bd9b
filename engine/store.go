// engine/store.go
package engine

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/models"
)

var (
	// ErrSlotAlreadyFilled is returned by FillSlot when the targeted
	// slot is no longer empty; a concurrent writer won the race.
	ErrSlotAlreadyFilled = errors.New("slot already filled")

	// ErrDuplicateCycle is returned by InsertActivation when an
	// activation with the same (user, plan, level, cycle) exists.
	ErrDuplicateCycle = errors.New("duplicate activation cycle")

	// ErrConcurrencyExhausted is surfaced after the slot-fill retry
	// budget is spent on a repeatedly contended activation.
	ErrConcurrencyExhausted = errors.New("slot fill retries exhausted")

	ErrUserNotFound         = errors.New("user not found")
	ErrLevelNotFound        = errors.New("level not found for this package")
	ErrSequenceViolation    = errors.New("levels must be purchased in order")
	ErrPriorLevelIncomplete = errors.New("previous level cycles not complete")
	ErrNotFrozen            = errors.New("level is not frozen")
)

// CycleCompletion carries the lifecycle fields that FillSlot applies
// atomically together with the final slot of a cycle.
type CycleCompletion struct {
	CompletedCycles int
	Status          models.ActivationStatus
}

// Store is the persistence surface the distribution engine runs
// against. The Mongo implementation lives in the repositories package;
// tests substitute an in-memory one.
type Store interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindUserByReferralCode returns (nil, nil) when no user holds the code.
	FindUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	// CreditWallet applies an unconditional atomic increment.
	CreditWallet(ctx context.Context, userID primitive.ObjectID, amount float64) error
	// ListDirectDownline returns users referred by the code, oldest first.
	ListDirectDownline(ctx context.Context, referralCode string) ([]models.User, error)

	// FindCurrentCycle returns the highest-cycle activation that is
	// active and not complete, or (nil, nil) when there is none.
	FindCurrentCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error)
	// FindLatestCycle returns the highest-cycle activation regardless
	// of completion, or (nil, nil).
	FindLatestCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error)
	ListActivations(ctx context.Context, userID primitive.ObjectID, packageName string) ([]models.Activation, error)
	InsertActivation(ctx context.Context, activation *models.Activation) error
	// FillSlot sets slots[slotIndex] only while its status is still
	// empty, failing with ErrSlotAlreadyFilled otherwise. When
	// completion is non-nil the cycle-completion fields are written in
	// the same atomic update.
	FillSlot(ctx context.Context, activationID primitive.ObjectID, slotIndex int, slot models.Slot, completion *CycleCompletion) error
}

// Notifier pushes realtime events produced by the engine. A nil
// Notifier disables notifications.
type Notifier interface {
	NotifyWalletCredit(userID primitive.ObjectID, amount float64, level models.LevelDefinition)
	NotifyCycleComplete(userID primitive.ObjectID, level models.LevelDefinition, cycle int, frozen bool)
}

// engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/HSouheill/matrix_backend/models"
)

const (
	// maxHops bounds the referral-graph walk. The business rule says
	// the referral relation is a tree, but corrupted data could make
	// it cyclic, so the walk terminates unconditionally.
	maxHops = 64

	// maxFillRetries bounds the re-resolve loop when a conditional
	// slot fill loses to a concurrent writer.
	maxFillRetries = 5
)

// Engine runs the payout distribution walk over the referral graph.
// All state lives behind the Store; the engine itself is stateless and
// safe for concurrent use.
type Engine struct {
	store    Store
	notifier Notifier
	logger   *log.Logger
}

// NewEngine creates a distribution engine. notifier may be nil.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   log.New(os.Stdout, "[ENGINE] ", log.LstdFlags),
	}
}

// filledSlot records a slot the engine just claimed: whose activation
// it belongs to and at which index, which is what the plan policy
// branches on.
type filledSlot struct {
	owner     *models.User
	slotIndex int
}

// Distribute walks the referral chain upward from trigger, filling one
// slot per hop and applying the plan's payout policy until a payment
// lands, a dead end is reached, or the hop budget runs out. Dead ends
// (no referrer, unknown referral code, upliner without a current
// cycle, no spillover recipient) terminate the walk without error.
func (e *Engine) Distribute(ctx context.Context, trigger *models.User, level models.LevelDefinition) error {
	current := trigger
	var pending *filledSlot

	for hops := 0; hops < maxHops; hops++ {
		if pending == nil {
			if current.ReferredBy == "" {
				return nil // root of the referral tree
			}
			upliner, err := e.store.FindUserByReferralCode(ctx, current.ReferredBy)
			if err != nil {
				return fmt.Errorf("resolve upliner: %w", err)
			}
			if upliner == nil {
				e.logger.Printf("warning: user %s references unknown referral code %q, stopping distribution",
					current.ID.Hex(), current.ReferredBy)
				return nil
			}
			pending, err = e.claimUplinerSlot(ctx, upliner, current, level)
			if err != nil {
				return err
			}
			if pending == nil {
				return nil
			}
		}

		fill := pending
		pending = nil

		switch level.PackageName {
		case models.PlanThree:
			if fill.slotIndex < 2 {
				return e.credit(ctx, fill.owner, level)
			}
			// last slot passes the payout to the owner's own upliner
			current = fill.owner

		case models.PlanSix:
			switch {
			case fill.slotIndex <= 1:
				current = fill.owner
			case fill.slotIndex <= 4:
				return e.credit(ctx, fill.owner, level)
			default: // slot 5 spills over to the owner's downline
				spill, err := e.claimSpilloverSlot(ctx, fill.owner, current, level)
				if err != nil {
					return err
				}
				if spill == nil {
					e.logger.Printf("spillover from %s for %s level %d had no recipient",
						fill.owner.ID.Hex(), level.PackageName, level.LevelNumber)
					return nil
				}
				pending = spill
			}

		default:
			return fmt.Errorf("%w: unknown package %q", ErrLevelNotFound, level.PackageName)
		}
	}

	e.logger.Printf("warning: distribution for %s level %d exceeded %d hops, possible referral cycle",
		level.PackageName, level.LevelNumber, maxHops)
	return nil
}

// claimUplinerSlot resolves the upliner's current cycle and fills its
// first empty slot. On a lost fill race the cycle and slot are
// re-resolved from scratch, since the state changed underneath.
// Returns (nil, nil) on a dead end.
func (e *Engine) claimUplinerSlot(ctx context.Context, upliner, trigger *models.User, level models.LevelDefinition) (*filledSlot, error) {
	for attempt := 0; attempt < maxFillRetries; attempt++ {
		activation, err := e.store.FindCurrentCycle(ctx, upliner.ID, level.PackageName, level.LevelNumber)
		if err != nil {
			return nil, fmt.Errorf("resolve current cycle: %w", err)
		}
		if activation == nil {
			return nil, nil // upliner has not purchased, or is frozen on this level
		}
		slotIndex := FindEmptySlot(activation)
		if slotIndex < 0 {
			e.logger.Printf("warning: activation %s is active and incomplete but has no empty slot",
				activation.ID.Hex())
			return nil, nil
		}
		slot := models.Slot{FilledBy: &trigger.ID, Status: slotStatusFor(level, slotIndex)}
		err = e.fillAndAdvance(ctx, activation, slotIndex, slot, upliner, level)
		if errors.Is(err, ErrSlotAlreadyFilled) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &filledSlot{owner: upliner, slotIndex: slotIndex}, nil
	}
	return nil, ErrConcurrencyExhausted
}

// claimSpilloverSlot searches the owner's direct downline for an open
// slot and fills it as paid_spillover, recording the original trigger
// as provenance. A lost race restarts the search.
func (e *Engine) claimSpilloverSlot(ctx context.Context, owner, trigger *models.User, level models.LevelDefinition) (*filledSlot, error) {
	for attempt := 0; attempt < maxFillRetries; attempt++ {
		target, err := findSpilloverTarget(ctx, e.store, owner, level)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, nil
		}
		targetOwner, err := e.store.FindUserByID(ctx, target.activation.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				e.logger.Printf("warning: activation %s references missing user %s, stopping distribution",
					target.activation.ID.Hex(), target.activation.UserID.Hex())
				return nil, nil
			}
			return nil, err
		}
		slot := models.Slot{FilledBy: &trigger.ID, Status: models.SlotPaidSpillover}
		err = e.fillAndAdvance(ctx, target.activation, target.slotIndex, slot, targetOwner, level)
		if errors.Is(err, ErrSlotAlreadyFilled) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &filledSlot{owner: targetOwner, slotIndex: target.slotIndex}, nil
	}
	return nil, ErrConcurrencyExhausted
}

// fillAndAdvance performs the conditional slot fill and, when the slot
// is the last of its cycle, writes the completion fields in the same
// update and opens the next cycle or freezes the level.
func (e *Engine) fillAndAdvance(ctx context.Context, activation *models.Activation, slotIndex int, slot models.Slot, owner *models.User, level models.LevelDefinition) error {
	var completion *CycleCompletion
	lastSlot := slotIndex == len(activation.Slots)-1
	if lastSlot {
		completion = &CycleCompletion{
			CompletedCycles: activation.CompletedCycles + 1,
			Status:          models.ActivationActive,
		}
		if completion.CompletedCycles >= level.CyclesToFreeze {
			completion.Status = models.ActivationFrozen
		}
	}

	if err := e.store.FillSlot(ctx, activation.ID, slotIndex, slot, completion); err != nil {
		return err
	}

	if completion == nil {
		return nil
	}

	frozen := completion.Status == models.ActivationFrozen
	if e.notifier != nil {
		e.notifier.NotifyCycleComplete(owner.ID, level, activation.Cycle, frozen)
	}
	if frozen {
		return nil
	}

	next := models.NewActivation(owner.ID, level, activation.Cycle+1, completion.CompletedCycles)
	err := e.store.InsertActivation(ctx, &next)
	if errors.Is(err, ErrDuplicateCycle) {
		// another chain already advanced this cycle; benign
		return nil
	}
	if err != nil {
		return fmt.Errorf("open cycle %d: %w", activation.Cycle+1, err)
	}
	return nil
}

func (e *Engine) credit(ctx context.Context, owner *models.User, level models.LevelDefinition) error {
	if err := e.store.CreditWallet(ctx, owner.ID, level.Price); err != nil {
		return fmt.Errorf("credit wallet of %s: %w", owner.ID.Hex(), err)
	}
	if e.notifier != nil {
		e.notifier.NotifyWalletCredit(owner.ID, level.Price, level)
	}
	return nil
}

// slotStatusFor maps a slot index to the payout status the plan policy
// assigns it: paid_direct for money slots, paid_passthrough for slots
// whose payout is forwarded elsewhere (up the chain or via spillover).
func slotStatusFor(level models.LevelDefinition, slotIndex int) models.SlotStatus {
	switch level.PackageName {
	case models.PlanThree:
		if slotIndex < 2 {
			return models.SlotPaidDirect
		}
		return models.SlotPaidPassthrough
	default: // 6p
		if slotIndex >= 2 && slotIndex <= 4 {
			return models.SlotPaidDirect
		}
		return models.SlotPaidPassthrough
	}
}

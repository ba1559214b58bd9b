// engine/resolver.go
package engine

import (
	"context"
	"fmt"

	"github.com/HSouheill/matrix_backend/models"
)

// FindEmptySlot returns the lowest-index empty slot of an activation,
// or -1 when every slot is filled.
func FindEmptySlot(activation *models.Activation) int {
	for i, s := range activation.Slots {
		if s.Status == models.SlotEmpty {
			return i
		}
	}
	return -1
}

// spilloverTarget is a downline activation slot selected to receive a
// passed-down payout.
type spilloverTarget struct {
	activation *models.Activation
	slotIndex  int
}

// findSpilloverTarget walks the upliner's direct downline oldest-first
// and returns the first current-cycle activation for the same level
// that still has an empty slot. A nil result is a dead end, not an
// error: the payout is simply unrealized.
func findSpilloverTarget(ctx context.Context, store Store, upliner *models.User, level models.LevelDefinition) (*spilloverTarget, error) {
	downline, err := store.ListDirectDownline(ctx, upliner.ReferralCode)
	if err != nil {
		return nil, fmt.Errorf("spillover downline scan: %w", err)
	}
	for i := range downline {
		activation, err := store.FindCurrentCycle(ctx, downline[i].ID, level.PackageName, level.LevelNumber)
		if err != nil {
			return nil, err
		}
		if activation == nil {
			continue
		}
		if idx := FindEmptySlot(activation); idx >= 0 {
			return &spilloverTarget{activation: activation, slotIndex: idx}, nil
		}
	}
	return nil, nil
}

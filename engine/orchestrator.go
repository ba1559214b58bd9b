// engine/orchestrator.go
package engine

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/catalog"
	"github.com/HSouheill/matrix_backend/models"
)

// Orchestrator validates purchase and recycle requests and hands
// successful purchases to the distribution engine.
type Orchestrator struct {
	store  Store
	engine *Engine
}

func NewOrchestrator(store Store, engine *Engine) *Orchestrator {
	return &Orchestrator{store: store, engine: engine}
}

// BuyLevel purchases (packageName, levelNumber) for the user. Levels
// unlock sequentially, and levels above 1 additionally require the
// previous level to have completed its configured cycles. On success
// the buyer's cycle-1 activation is inserted and distribution runs
// from the buyer's upliner; a distribution that finds no recipient is
// still a successful purchase.
func (o *Orchestrator) BuyLevel(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	level, ok := catalog.Lookup(packageName, levelNumber)
	if !ok {
		return nil, ErrLevelNotFound
	}

	user, err := o.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	activations, err := o.store.ListActivations(ctx, userID, packageName)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	highest := 0
	for _, a := range activations {
		if a.LevelNumber > highest {
			highest = a.LevelNumber
		}
	}
	if levelNumber != highest+1 {
		return nil, fmt.Errorf("%w: purchase level %d of %s first", ErrSequenceViolation, highest+1, packageName)
	}

	if levelNumber > 1 {
		prevLevel, _ := catalog.Lookup(packageName, levelNumber-1)
		prev, err := o.store.FindLatestCycle(ctx, userID, packageName, levelNumber-1)
		if err != nil {
			return nil, err
		}
		if prev == nil || prev.CompletedCycles < prevLevel.CyclesToFreeze {
			return nil, fmt.Errorf("%w: complete %d cycle(s) of level %d to unlock",
				ErrPriorLevelIncomplete, prevLevel.CyclesToFreeze, levelNumber-1)
		}
	}

	activation := models.NewActivation(userID, level, 1, 0)
	if err := o.store.InsertActivation(ctx, &activation); err != nil {
		return nil, fmt.Errorf("insert activation: %w", err)
	}

	if err := o.engine.Distribute(ctx, user, level); err != nil {
		// the purchase is already durable; the caller learns the
		// distribution stopped short but the activation stands
		return &activation, fmt.Errorf("distribution: %w", err)
	}
	return &activation, nil
}

// RecycleLevel reopens a frozen level: a new cycle is inserted with
// completedCycles reset to zero. Only frozen levels can be recycled.
func (o *Orchestrator) RecycleLevel(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	level, ok := catalog.Lookup(packageName, levelNumber)
	if !ok {
		return nil, ErrLevelNotFound
	}

	latest, err := o.store.FindLatestCycle(ctx, userID, packageName, levelNumber)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Status != models.ActivationFrozen {
		return nil, ErrNotFrozen
	}

	activation := models.NewActivation(userID, level, latest.Cycle+1, 0)
	if err := o.store.InsertActivation(ctx, &activation); err != nil {
		return nil, fmt.Errorf("insert recycled activation: %w", err)
	}
	return &activation, nil
}

// ListMyActivations returns the user's activations for a plan, ordered
// by level then cycle.
func (o *Orchestrator) ListMyActivations(ctx context.Context, userID primitive.ObjectID, packageName string) ([]models.Activation, error) {
	return o.store.ListActivations(ctx, userID, packageName)
}

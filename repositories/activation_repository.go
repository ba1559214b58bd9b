// repositories/activation_repository.go
package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/matrix_backend/engine"
	"github.com/HSouheill/matrix_backend/models"
)

// FindCurrentCycle returns the highest-cycle activation that is active
// and not cycle-complete, or (nil, nil) when the user has none for
// this level. Frozen and completed cycles are excluded by the filter,
// which is what guards slot fills against them.
func (s *MongoStore) FindCurrentCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	filter := bson.M{
		"userId":      userID,
		"packageName": packageName,
		"levelNumber": levelNumber,
		"status":      models.ActivationActive,
		"isComplete":  false,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "cycle", Value: -1}})

	var activation models.Activation
	err := s.activations.FindOne(ctx, filter, opts).Decode(&activation)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

func (s *MongoStore) FindLatestCycle(ctx context.Context, userID primitive.ObjectID, packageName string, levelNumber int) (*models.Activation, error) {
	filter := bson.M{
		"userId":      userID,
		"packageName": packageName,
		"levelNumber": levelNumber,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "cycle", Value: -1}})

	var activation models.Activation
	err := s.activations.FindOne(ctx, filter, opts).Decode(&activation)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activation, nil
}

func (s *MongoStore) ListActivations(ctx context.Context, userID primitive.ObjectID, packageName string) ([]models.Activation, error) {
	filter := bson.M{"userId": userID, "packageName": packageName}
	opts := options.Find().SetSort(bson.D{{Key: "levelNumber", Value: 1}, {Key: "cycle", Value: 1}})

	cursor, err := s.activations.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activations []models.Activation
	if err := cursor.All(ctx, &activations); err != nil {
		return nil, err
	}
	return activations, nil
}

// InsertActivation relies on the unique index over (userId,
// packageName, levelNumber, cycle) to reject concurrent cycle
// advances; the duplicate surfaces as engine.ErrDuplicateCycle.
func (s *MongoStore) InsertActivation(ctx context.Context, activation *models.Activation) error {
	res, err := s.activations.InsertOne(ctx, activation)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s/%s level %d cycle %d", engine.ErrDuplicateCycle,
			activation.UserID.Hex(), activation.PackageName, activation.LevelNumber, activation.Cycle)
	}
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		activation.ID = id
	}
	return nil
}

// FillSlot is the compare-and-set at the heart of the engine: the
// update matches only while slots[slotIndex] is still empty, so of two
// racing chains exactly one claims the slot. Completion fields ride in
// the same update so "last slot filled" and "cycle complete" are never
// observable apart.
func (s *MongoStore) FillSlot(ctx context.Context, activationID primitive.ObjectID, slotIndex int, slot models.Slot, completion *engine.CycleCompletion) error {
	filter := bson.M{
		"_id": activationID,
		fmt.Sprintf("slots.%d.status", slotIndex): models.SlotEmpty,
	}
	set := bson.M{fmt.Sprintf("slots.%d", slotIndex): slot}
	if completion != nil {
		set["isComplete"] = true
		set["completedCycles"] = completion.CompletedCycles
		set["status"] = completion.Status
	}

	res, err := s.activations.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// either the slot was claimed concurrently or the activation
		// is gone; both resolve the same way, by re-reading state
		return engine.ErrSlotAlreadyFilled
	}
	return nil
}

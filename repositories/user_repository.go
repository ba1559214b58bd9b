// repositories/user_repository.go
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

func (s *MongoStore) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", engine.ErrUserNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByReferralCode returns (nil, nil) when no user holds the
// code; an unknown referredBy reference is a distribution dead end,
// not a storage failure.
func (s *MongoStore) FindUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"referralCode": code}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreditWallet is an unconditional atomic increment. Wallet credits
// are commutative, so no compare-and-set is needed here.
func (s *MongoStore) CreditWallet(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	res, err := s.users.UpdateByID(ctx, userID, bson.M{"$inc": bson.M{"walletBalance": amount}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", engine.ErrUserNotFound, userID.Hex())
	}
	return nil
}

// ListDirectDownline returns users referred by the code in ascending
// join order, which gives spillover its deterministic oldest-first
// precedence.
func (s *MongoStore) ListDirectDownline(ctx context.Context, referralCode string) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{"referredBy": referralCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var downline []models.User
	if err := cursor.All(ctx, &downline); err != nil {
		return nil, err
	}
	return downline, nil
}

// repositories/store.go
package repositories

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/matrix_backend/engine"
)

// MongoStore implements engine.Store on top of the users and
// userActivations collections. User-side methods live in
// user_repository.go, activation-side methods in
// activation_repository.go.
type MongoStore struct {
	users       *mongo.Collection
	activations *mongo.Collection
}

var _ engine.Store = (*MongoStore)(nil)

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:       db.Collection("users"),
		activations: db.Collection("userActivations"),
	}
}

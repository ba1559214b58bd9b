// models/level.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan names for the two payout models
const (
	PlanThree = "3p"
	PlanSix   = "6p"
)

// SlotStatus describes how a slot's payout was resolved. A slot starts
// empty and transitions exactly once to one of the paid statuses.
type SlotStatus string

const (
	SlotEmpty           SlotStatus = "empty"
	SlotPaidDirect      SlotStatus = "paid_direct"      // money credited to the slot owner
	SlotPaidPassthrough SlotStatus = "paid_passthrough" // payout forwarded along the referral chain
	SlotPaidSpillover   SlotStatus = "paid_spillover"   // filled via the 6p downline spillover search
)

// ActivationStatus is the lifecycle state of an activation cycle
type ActivationStatus string

const (
	ActivationActive ActivationStatus = "active"
	ActivationFrozen ActivationStatus = "frozen"
)

// LevelDefinition describes one purchasable level of a plan
type LevelDefinition struct {
	PackageName    string  `json:"packageName" bson:"packageName"`
	LevelNumber    int     `json:"levelNumber" bson:"levelNumber"`
	Price          float64 `json:"price" bson:"price"`
	Slots          int     `json:"slots" bson:"slots"`
	CyclesToFreeze int     `json:"cyclesToFreeze" bson:"cyclesToFreeze"`
}

// Slot records who filled a position in an activation and how the
// payout for that position was resolved. FilledBy is provenance only.
type Slot struct {
	FilledBy *primitive.ObjectID `json:"filledBy" bson:"filledBy"`
	Status   SlotStatus          `json:"status" bson:"status"`
}

// Activation is one cycle of a purchased (plan, level) for a user
type Activation struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"userId" bson:"userId"`
	PackageName     string             `json:"packageName" bson:"packageName"`
	LevelNumber     int                `json:"levelNumber" bson:"levelNumber"`
	Cycle           int                `json:"cycle" bson:"cycle"`
	Slots           []Slot             `json:"slots" bson:"slots"`
	IsComplete      bool               `json:"isComplete" bson:"isComplete"`
	CompletedCycles int                `json:"completedCycles" bson:"completedCycles"`
	Status          ActivationStatus   `json:"status" bson:"status"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
}

// NewActivation builds an activation with all slots empty
func NewActivation(userID primitive.ObjectID, level LevelDefinition, cycle, completedCycles int) Activation {
	slots := make([]Slot, level.Slots)
	for i := range slots {
		slots[i] = Slot{Status: SlotEmpty}
	}
	return Activation{
		UserID:          userID,
		PackageName:     level.PackageName,
		LevelNumber:     level.LevelNumber,
		Cycle:           cycle,
		Slots:           slots,
		IsComplete:      false,
		CompletedCycles: completedCycles,
		Status:          ActivationActive,
		CreatedAt:       time.Now(),
	}
}

// BuyLevelRequest is the payload for purchasing or recycling a level
type BuyLevelRequest struct {
	PackageName string `json:"packageName" validate:"required,oneof=3p 6p"`
	LevelNumber int    `json:"levelNumber" validate:"required,min=1"`
}

package websocket

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/models"
)

// EngineNotifier adapts the hub to the distribution engine's Notifier
// interface. Delivery is best effort: a disconnected user just misses
// the push, the wallet update is already durable.
type EngineNotifier struct {
	hub *Hub
}

func NewEngineNotifier(hub *Hub) *EngineNotifier {
	return &EngineNotifier{hub: hub}
}

func (n *EngineNotifier) NotifyWalletCredit(userID primitive.ObjectID, amount float64, level models.LevelDefinition) {
	n.hub.SendToUser(userID, Notification{
		Type:    NotificationTypeWalletCredit,
		Message: fmt.Sprintf("You received %.2f from %s level %d", amount, level.PackageName, level.LevelNumber),
		Data: map[string]interface{}{
			"amount":      amount,
			"packageName": level.PackageName,
			"levelNumber": level.LevelNumber,
		},
	})
}

func (n *EngineNotifier) NotifyCycleComplete(userID primitive.ObjectID, level models.LevelDefinition, cycle int, frozen bool) {
	message := fmt.Sprintf("Cycle %d of %s level %d is complete", cycle, level.PackageName, level.LevelNumber)
	if frozen {
		message += "; the level is now frozen and can be recycled"
	}
	n.hub.SendToUser(userID, Notification{
		Type:    NotificationTypeCycleComplete,
		Message: message,
		Data: map[string]interface{}{
			"packageName": level.PackageName,
			"levelNumber": level.LevelNumber,
			"cycle":       cycle,
			"frozen":      frozen,
		},
	})
}

package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/controllers"
	"github.com/HSouheill/matrix_backend/middleware"
	"github.com/HSouheill/matrix_backend/models"
	"github.com/HSouheill/matrix_backend/websocket"
)

// RegisterLevelRoutes sets up the purchase/recycle surface and the
// notification websocket
func RegisterLevelRoutes(e *echo.Echo, levelController *controllers.LevelController, hub *websocket.Hub) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/levels", levelController.GetAvailableLevels)
	r.GET("/levels/activations", levelController.GetMyActivations)
	r.POST("/levels/buy", levelController.BuyLevel)
	r.POST("/levels/recycle", levelController.RecycleLevel)

	r.GET("/ws", func(c echo.Context) error {
		userID, err := middleware.ExtractUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid user ID in token",
			})
		}
		objID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid user ID format",
			})
		}
		return websocket.HandleWebSocket(c, hub, objID)
	})
}

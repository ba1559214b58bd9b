package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/matrix_backend/controllers"
	"github.com/HSouheill/matrix_backend/middleware"
)

// RegisterAuthRoutes sets up authentication and profile routes
func RegisterAuthRoutes(e *echo.Echo, db *mongo.Client) {
	authController := controllers.NewAuthController(db)

	auth := e.Group("/api/auth")
	auth.POST("/signup", authController.Signup)
	auth.POST("/login", authController.Login)
	auth.POST("/remember-me/get", authController.GetRememberedCredentials)
	auth.POST("/remember-me/remove", authController.RemoveRememberedCredentials)

	// Protected routes group
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.POST("/auth/logout", authController.Logout)
	r.GET("/users/me", authController.GetMe)
	r.GET("/users/referrals", authController.GetMyReferrals)
}

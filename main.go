package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/HSouheill/matrix_backend/config"
	"github.com/HSouheill/matrix_backend/controllers"
	"github.com/HSouheill/matrix_backend/engine"
	"github.com/HSouheill/matrix_backend/middleware"
	"github.com/HSouheill/matrix_backend/repositories"
	"github.com/HSouheill/matrix_backend/routes"
	"github.com/HSouheill/matrix_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (remember-me storage; optional)
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DatabaseName())

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Expire blacklisted tokens in the background
	go middleware.CleanupBlacklist()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders(middleware.DefaultSecurityConfig()))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Matrix Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Wire the distribution engine against the Mongo store
	store := repositories.NewMongoStore(db)
	notifier := websocket.NewEngineNotifier(wsHub)
	distributionEngine := engine.NewEngine(store, notifier)
	orchestrator := engine.NewOrchestrator(store, distributionEngine)

	levelController := controllers.NewLevelController(orchestrator)

	routes.RegisterAuthRoutes(e, client)
	routes.RegisterLevelRoutes(e, levelController, wsHub)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/matrix_backend/catalog"
	"github.com/HSouheill/matrix_backend/engine"
	"github.com/HSouheill/matrix_backend/middleware"
	"github.com/HSouheill/matrix_backend/models"
)

// LevelController exposes the purchase/recycle surface of the
// distribution engine.
type LevelController struct {
	orchestrator *engine.Orchestrator
	logger       *log.Logger
}

func NewLevelController(orchestrator *engine.Orchestrator) *LevelController {
	return &LevelController{
		orchestrator: orchestrator,
		logger:       log.New(os.Stdout, "[LEVELS] ", log.LstdFlags),
	}
}

// GetAvailableLevels returns the level catalog, optionally filtered by
// the package query parameter.
func (lc *LevelController) GetAvailableLevels(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Levels retrieved",
		Data:    catalog.ListAll(c.QueryParam("package")),
	})
}

// GetMyActivations returns the caller's activations for a plan
func (lc *LevelController) GetMyActivations(c echo.Context) error {
	userID, ok := lc.callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	packageName := c.QueryParam("package")
	if packageName == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Package name query parameter is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	activations, err := lc.orchestrator.ListMyActivations(ctx, userID, packageName)
	if err != nil {
		lc.logger.Printf("list activations failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load activations",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Activations retrieved",
		Data:    activations,
	})
}

// BuyLevel purchases a level and triggers distribution up the
// referral chain. A distribution that finds no recipient anywhere is
// still a successful purchase.
func (lc *LevelController) BuyLevel(c echo.Context) error {
	userID, ok := lc.callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.BuyLevelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	// distribution chains span several storage round trips, give them
	// a wider budget than single lookups
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	activation, err := lc.orchestrator.BuyLevel(ctx, userID, req.PackageName, req.LevelNumber)
	if err != nil {
		return lc.engineError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Level purchased successfully",
		Data:    activation,
	})
}

// RecycleLevel reopens a frozen level
func (lc *LevelController) RecycleLevel(c echo.Context) error {
	userID, ok := lc.callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.BuyLevelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	activation, err := lc.orchestrator.RecycleLevel(ctx, userID, req.PackageName, req.LevelNumber)
	if err != nil {
		return lc.engineError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Level recycled successfully",
		Data:    activation,
	})
}

func (lc *LevelController) callerID(c echo.Context) (primitive.ObjectID, bool) {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return primitive.NilObjectID, false
	}
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return objID, true
}

// engineError maps orchestrator/engine errors onto HTTP statuses:
// validation failures are the caller's problem, contention is a 409,
// everything else is a server error.
func (lc *LevelController) engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrLevelNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, engine.ErrSequenceViolation),
		errors.Is(err, engine.ErrPriorLevelIncomplete),
		errors.Is(err, engine.ErrNotFrozen):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.Is(err, engine.ErrDuplicateCycle),
		errors.Is(err, engine.ErrConcurrencyExhausted):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	default:
		lc.logger.Printf("level operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Server error",
		})
	}
}

package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/HSouheill/matrix_backend/config"
	"github.com/HSouheill/matrix_backend/middleware"
	"github.com/HSouheill/matrix_backend/models"
	"github.com/HSouheill/matrix_backend/utils"
)

// AuthController contains authentication logic
type AuthController struct {
	DB     *mongo.Client
	logger *log.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(db *mongo.Client) *AuthController {
	return &AuthController{
		DB:     db,
		logger: log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
	}
}

func (ac *AuthController) users() *mongo.Collection {
	return config.GetCollection(ac.DB, "users")
}

// Signup registers a new user. A referral code, when provided, must
// resolve to an existing user; the new account records it as
// referredBy, which is what the distribution engine later walks.
func (ac *AuthController) Signup(c echo.Context) error {
	var req models.SignupRequest
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

	count, err := ac.users().CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check existing users",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "User already exists",
		})
	}

	referredBy := ""
	if req.ReferralCode != "" {
		var referrer models.User
		err := ac.users().FindOne(ctx, bson.M{"referralCode": req.ReferralCode}).Decode(&referrer)
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid referral code",
			})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to look up referrer",
			})
		}
		referredBy = referrer.ReferralCode
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process password",
		})
	}

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	now := time.Now()
	user := models.User{
		Email:         req.Email,
		Password:      string(hashedPassword),
		FullName:      req.FullName,
		ReferralCode:  referralCode,
		ReferredBy:    referredBy,
		WalletBalance: 0,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	result, err := ac.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// either the email raced a concurrent signup or the
			// generated referral code collided
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Signup conflict, please try again",
			})
		}
		ac.logger.Printf("signup insert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create user",
		})
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	user.Password = ""

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email)
	if err != nil {
		ac.logger.Printf("token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "User registered successfully",
		Data: models.AuthData{
			Token:        token,
			RefreshToken: refreshToken,
			User:         user,
		},
	})
}

// Login authenticates a user and returns a JWT
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
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

	var user models.User
	err := ac.users().FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid credentials",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email)
	if err != nil {
		ac.logger.Printf("token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate token",
		})
	}

	data := models.AuthData{
		Token:        token,
		RefreshToken: refreshToken,
	}
	user.Password = ""
	data.User = user

	if req.RememberMe && config.RedisClient != nil {
		rememberToken, err := utils.GenerateRememberMeToken()
		if err == nil {
			expiry := 30 * 24 * time.Hour
			err = utils.StoreRememberedCredentials(config.RedisClient, rememberToken, utils.RememberedCredentials{
				Email:     user.Email,
				UserID:    user.ID.Hex(),
				ExpiresAt: time.Now().Add(expiry),
			}, expiry)
			if err == nil {
				data.RememberMeToken = rememberToken
			} else {
				ac.logger.Printf("remember me store failed: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    data,
	})
}

// GetRememberedCredentials resolves a remember-me token issued at
// login back to the stored login hints, so a client can prefill the
// login form without keeping the password.
func (ac *AuthController) GetRememberedCredentials(c echo.Context) error {
	var req struct {
		RememberMeToken string `json:"rememberMeToken"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.RememberMeToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Remember me token is required",
		})
	}

	if config.RedisClient == nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Remember me service unavailable",
		})
	}

	credentials, err := utils.RetrieveRememberedCredentials(config.RedisClient, req.RememberMeToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired remember me token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Remembered credentials retrieved",
		Data: map[string]interface{}{
			"email":  credentials.Email,
			"userId": credentials.UserID,
		},
	})
}

// RemoveRememberedCredentials discards a remember-me token, e.g. when
// the user unticks remember-me or logs out everywhere.
func (ac *AuthController) RemoveRememberedCredentials(c echo.Context) error {
	var req struct {
		RememberMeToken string `json:"rememberMeToken"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.RememberMeToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Remember me token is required",
		})
	}

	if config.RedisClient == nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Remember me service unavailable",
		})
	}

	if err := utils.RemoveRememberedCredentials(config.RedisClient, req.RememberMeToken); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to remove remembered credentials",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Remembered credentials removed",
	})
}

// Logout blacklists the caller's token
func (ac *AuthController) Logout(c echo.Context) error {
	auth := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) {
		middleware.BlacklistToken(auth[len(prefix):], time.Now().Add(7*24*time.Hour))
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Logged out successfully",
	})
}

// GetMe returns the caller's profile without the password
func (ac *AuthController) GetMe(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = ac.users().FindOne(ctx, bson.M{"_id": objID},
		options.FindOne().SetProjection(bson.M{"password": 0})).Decode(&user)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved",
		Data:    user,
	})
}

// GetMyReferrals returns the caller's direct downline, oldest first
func (ac *AuthController) GetMyReferrals(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := ac.users().FindOne(ctx, bson.M{"_id": objID}).Decode(&user); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetProjection(bson.M{"password": 0})
	cursor, err := ac.users().Find(ctx, bson.M{"referredBy": user.ReferralCode}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}
	defer cursor.Close(ctx)

	referrals := []models.User{}
	if err := cursor.All(ctx, &referrals); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referrals retrieved",
		Data:    referrals,
	})
}

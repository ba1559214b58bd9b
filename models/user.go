// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email         string             `json:"email" bson:"email"`
	Password      string             `json:"password,omitempty" bson:"password"`
	FullName      string             `json:"fullName" bson:"fullName"`
	ReferralCode  string             `json:"referralCode" bson:"referralCode"`
	ReferredBy    string             `json:"referredBy,omitempty" bson:"referredBy,omitempty"`
	WalletBalance float64            `json:"walletBalance" bson:"walletBalance"`
	IsActive      bool               `json:"isActive" bson:"isActive"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SignupRequest is the payload for user registration
type SignupRequest struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	ReferralCode string `json:"referralCode"`
}

// LoginRequest is the payload for user login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// AuthData is returned on successful signup/login
type AuthData struct {
	Token           string `json:"token"`
	RefreshToken    string `json:"refreshToken,omitempty"`
	RememberMeToken string `json:"rememberMeToken,omitempty"`
	User            User   `json:"user"`
}

// Response is the standard API response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

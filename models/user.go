package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/workflow"
)

// AccountStatus gates whether a user may hold a session.
type AccountStatus string

// Account statuses
const (
	AccountActive    AccountStatus = "active"
	AccountPending   AccountStatus = "pending"
	AccountSuspended AccountStatus = "suspended"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id"`
	Username         string             `json:"username" bson:"username"`
	PasswordHash     string             `json:"-" bson:"passwordHash"`
	Role             workflow.Role      `json:"role" bson:"role"`
	FullName         string             `json:"fullName" bson:"fullName"`
	Email            string             `json:"email" bson:"email"`
	PhoneNumber      string             `json:"phoneNumber" bson:"phoneNumber"`
	NIC              string             `json:"nic" bson:"nic"`
	GSID             string             `json:"gsId,omitempty" bson:"gsId,omitempty"`
	Division         string             `json:"division,omitempty" bson:"division,omitempty"`
	AccountStatus    AccountStatus      `json:"accountStatus" bson:"accountStatus"`
	Address          string             `json:"address" bson:"address"`
	TokensValidAfter time.Time          `json:"-" bson:"tokensValidAfter"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	Role        workflow.Role `json:"role"`
	FullName    string        `json:"fullName"`
	Email       string        `json:"email"`
	PhoneNumber string        `json:"phoneNumber"`
	NIC         string        `json:"nic"`
	GSID        string        `json:"gsId"`
	Division    string        `json:"division"`
	Address     string        `json:"address"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Role     workflow.Role `json:"role,omitempty"`
}

// LoginResponse is returned on login. Token is nil when the account is not active.
type LoginResponse struct {
	Token         *string       `json:"token"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	AccountStatus AccountStatus `json:"accountStatus"`
	Message       string        `json:"message,omitempty"`
	User          *User         `json:"user,omitempty"`
}

// ProfileUpdateRequest holds the editable profile fields
type ProfileUpdateRequest struct {
	FullName    *string `json:"fullName,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// PasswordChangeRequest is the body of PUT /api/auth/password
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

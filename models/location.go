package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location holds the structure for the locations collection (registered places in the division)
type Location struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	Name          string              `json:"name" bson:"name"`
	Type          string              `json:"type" bson:"type"` // residence, business, temple, school, hospital, public, other
	Address       string              `json:"address" bson:"address"`
	Coordinates   GeoPoint            `json:"coordinates" bson:"coordinates"`
	Description   string              `json:"description,omitempty" bson:"description,omitempty"`
	ContactNumber string              `json:"contactNumber,omitempty" bson:"contactNumber,omitempty"`
	RegisteredBy  primitive.ObjectID  `json:"registeredBy" bson:"registeredBy"`
	Verified      bool                `json:"verified" bson:"verified"`
	VerifiedBy    *primitive.ObjectID `json:"verifiedBy,omitempty" bson:"verifiedBy,omitempty"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// LocationRequest is the body of POST /api/locations
type LocationRequest struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Address       string  `json:"address"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Description   string  `json:"description"`
	ContactNumber string  `json:"contactNumber"`
}

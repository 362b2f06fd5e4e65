package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Announcement holds the structure for the announcement collection in mongo
type Announcement struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Creator   primitive.ObjectID `json:"creator" bson:"creator"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	Category  string             `json:"category" bson:"category"` // general, health, event, notice, emergency
	Audience  string             `json:"audience" bson:"audience"` // all, citizens, officers
	Priority  string             `json:"priority" bson:"priority"` // low, medium, high, urgent
	StartDate time.Time          `json:"startDate" bson:"startDate"`
	EndDate   *time.Time         `json:"endDate,omitempty" bson:"endDate"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// AnnouncementRequest holds the structure for creating or updating an announcement
type AnnouncementRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  string     `json:"category"`
	Audience  string     `json:"audience"`
	Priority  string     `json:"priority"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service holds the structure for the services collection (the service catalog)
type Service struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id"`
	Name              string             `json:"name" bson:"name"`
	Code              string             `json:"code" bson:"code"` // request number prefix, e.g. "BC"
	Description       string             `json:"description" bson:"description"`
	Category          string             `json:"category" bson:"category"`
	RequiredDocuments []string           `json:"requiredDocuments" bson:"requiredDocuments"`
	ProcessingDays    int                `json:"processingDays" bson:"processingDays"`
	Fee               float64            `json:"fee" bson:"fee"`
	IsActive          bool               `json:"isActive" bson:"isActive"`
	CreatedBy         primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ServiceRequest holds the structure for the servicerequests collection
type ServiceRequest struct {
	WorkflowFields `bson:",inline"`

	Service                primitive.ObjectID `json:"service" bson:"service"`
	ServiceName            string             `json:"serviceName" bson:"serviceName"`
	ServiceCode            string             `json:"serviceCode" bson:"serviceCode"`
	Category               string             `json:"category" bson:"category"`
	Purpose                string             `json:"purpose" bson:"purpose"`
	FormData               map[string]string  `json:"formData,omitempty" bson:"formData,omitempty"`
	ExpectedCompletionDate *time.Time         `json:"expectedCompletionDate,omitempty" bson:"expectedCompletionDate,omitempty"`
	CompletedAt            *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	RejectionReason        string             `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	InfoRequest            string             `json:"additionalInfoRequest,omitempty" bson:"additionalInfoRequest,omitempty"`
	InfoResponse           string             `json:"additionalInfoResponse,omitempty" bson:"additionalInfoResponse,omitempty"`
	Payment                *Payment           `json:"payment,omitempty" bson:"payment,omitempty"`
}

// Payment tracks the fee for a fee-bearing service request
type Payment struct {
	IntentID     string  `json:"intentId" bson:"intentId"`
	Amount       float64 `json:"amount" bson:"amount"`
	Currency     string  `json:"currency" bson:"currency"`
	Status       string  `json:"status" bson:"status"`
	ClientSecret string  `json:"clientSecret,omitempty" bson:"-"`
}

// ApproveRequest is the body of PUT /api/gs/requests/{id}/approve
type ApproveRequest struct {
	ExpectedCompletionDate string `json:"expectedCompletionDate"`
	Note                   string `json:"note,omitempty"`
}

// RejectRequest is the body of PUT /api/gs/requests/{id}/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// InfoRequest is the body of PUT /api/gs/requests/{id}/request-info
type InfoRequest struct {
	Message string `json:"message"`
}

// InfoResponse is the body of PUT /api/services/requests/{id}/additional-info
type InfoResponse struct {
	Response string `json:"response"`
}

// ServiceInput is the body for creating or updating a catalog service
type ServiceInput struct {
	Name              string   `json:"name"`
	Code              string   `json:"code"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	RequiredDocuments []string `json:"requiredDocuments"`
	ProcessingDays    int      `json:"processingDays"`
	Fee               float64  `json:"fee"`
	IsActive          *bool    `json:"isActive,omitempty"`
}

// ApplyRequest is the body of POST /api/services/apply
type ApplyRequest struct {
	ServiceID string            `json:"serviceId"`
	Purpose   string            `json:"purpose"`
	FormData  map[string]string `json:"formData"`
}

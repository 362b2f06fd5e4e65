package models

import "time"

// Hearing statuses
const (
	HearingScheduled = "scheduled"
	HearingCancelled = "cancelled"
	HearingHeld      = "held"
)

// LegalCase holds the structure for the legalcases collection
type LegalCase struct {
	WorkflowFields `bson:",inline"`

	CaseType      string   `json:"caseType" bson:"caseType"` // land-dispute, family, neighbour, boundary, other
	Title         string   `json:"title" bson:"title"`
	Description   string   `json:"description" bson:"description"`
	Priority      string   `json:"priority" bson:"priority"` // low, medium, high
	OpposingParty *Party   `json:"opposingParty,omitempty" bson:"opposingParty,omitempty"`
	Resolution    string   `json:"resolution,omitempty" bson:"resolution,omitempty"`
	Hearing       *Hearing `json:"hearing,omitempty" bson:"hearing,omitempty"`
}

// Party is the other side of a legal case
type Party struct {
	Name    string `json:"name" bson:"name"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	Contact string `json:"contact,omitempty" bson:"contact,omitempty"`
}

// Hearing is the mediation appointment attached to a legal case
type Hearing struct {
	Date        string     `json:"date" bson:"date"`
	TimeSlot    string     `json:"timeSlot" bson:"timeSlot"`
	Venue       string     `json:"venue,omitempty" bson:"venue,omitempty"`
	Status      string     `json:"status" bson:"status"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	Reason      string     `json:"reason,omitempty" bson:"reason,omitempty"`
}

// HearingRequest is the body of PUT /api/legal-cases/{id}/appointment
type HearingRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	Venue    string `json:"venue"`
	Note     string `json:"note"`
}

// LegalCaseRequest is the body of POST /api/legal-cases
type LegalCaseRequest struct {
	CaseType      string `json:"caseType"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Priority      string `json:"priority"`
	OpposingParty *Party `json:"opposingParty,omitempty"`
}

package models

// Emergency holds the structure for the emergencies collection
type Emergency struct {
	WorkflowFields `bson:",inline"`

	Type         string    `json:"type" bson:"type"`         // fire, flood, medical, crime, accident, other
	Severity     string    `json:"severity" bson:"severity"` // low, medium, high, critical
	Description  string    `json:"description" bson:"description"`
	Address      string    `json:"address" bson:"address"`
	Location     *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty" bson:"contactPhone,omitempty"`
}

// EmergencyRequest is the body of POST /api/emergencies
type EmergencyRequest struct {
	Type         string   `json:"type"`
	Severity     string   `json:"severity"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	ContactPhone string   `json:"contactPhone"`
}

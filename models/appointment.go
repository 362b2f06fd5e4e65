package models

// Appointment holds the structure for the appointments collection
type Appointment struct {
	WorkflowFields `bson:",inline"`

	Date        string `json:"date" bson:"date"`         // YYYY-MM-DD
	TimeSlot    string `json:"timeSlot" bson:"timeSlot"` // "09:00-09:30"
	Purpose     string `json:"purpose" bson:"purpose"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	// SlotHeld is true while the appointment occupies its slot. The unique
	// (date, timeSlot) index only covers documents where it is true.
	SlotHeld           bool   `json:"-" bson:"slotHeld"`
	CancellationReason string `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
}

// AppointmentRequest is the body of POST /api/appointments
type AppointmentRequest struct {
	Date        string `json:"date"`
	TimeSlot    string `json:"timeSlot"`
	Purpose     string `json:"purpose"`
	Description string `json:"description"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason"`
}

// SlotAvailability is returned by GET /api/appointments/available-slots
type SlotAvailability struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Slot is one bookable half hour
type Slot struct {
	TimeSlot  string `json:"timeSlot"`
	Available bool   `json:"available"`
}

package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const appointmentName = "appointments"

// AppointmentDatabase contains the methods to use with the appointment database
type AppointmentDatabase interface {
	EntityDatabase[models.Appointment]
}

// NewAppointmentDatabase initializes a new instance of appointment database with the provided db connection
func NewAppointmentDatabase(db DatabaseHelper) AppointmentDatabase {
	return NewEntityDatabase[models.Appointment](db, appointmentName)
}

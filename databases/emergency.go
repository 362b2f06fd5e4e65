package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const emergencyName = "emergencies"

// EmergencyDatabase contains the methods to use with the emergency database
type EmergencyDatabase interface {
	EntityDatabase[models.Emergency]
}

// NewEmergencyDatabase initializes a new instance of emergency database with the provided db connection
func NewEmergencyDatabase(db DatabaseHelper) EmergencyDatabase {
	return NewEntityDatabase[models.Emergency](db, emergencyName)
}

package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const locationName = "locations"

// LocationDatabase contains the methods to use with the location database
type LocationDatabase interface {
	EntityDatabase[models.Location]
}

// NewLocationDatabase initializes a new instance of location database with the provided db connection
func NewLocationDatabase(db DatabaseHelper) LocationDatabase {
	return NewEntityDatabase[models.Location](db, locationName)
}

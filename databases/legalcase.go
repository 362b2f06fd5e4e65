package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const legalCaseName = "legalcases"

// LegalCaseDatabase contains the methods to use with the legal case database
type LegalCaseDatabase interface {
	EntityDatabase[models.LegalCase]
}

// NewLegalCaseDatabase initializes a new instance of legal case database with the provided db connection
func NewLegalCaseDatabase(db DatabaseHelper) LegalCaseDatabase {
	return NewEntityDatabase[models.LegalCase](db, legalCaseName)
}

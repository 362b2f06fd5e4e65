package databases

// go generate: mockery --name UserDatabase

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	EntityDatabase[models.User]
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return NewEntityDatabase[models.User](db, userName)
}

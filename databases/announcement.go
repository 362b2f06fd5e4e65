package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const announcementName = "announcements"

// AnnouncementDatabase contains the methods to use with the announcement database
type AnnouncementDatabase interface {
	EntityDatabase[models.Announcement]
}

// NewAnnouncementDatabase initializes a new instance of announcement database with the provided db connection
func NewAnnouncementDatabase(db DatabaseHelper) AnnouncementDatabase {
	return NewEntityDatabase[models.Announcement](db, announcementName)
}

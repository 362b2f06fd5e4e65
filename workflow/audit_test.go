package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewNote_CitizenNotesArePublic(t *testing.T) {
	n := NewNote("attached the deed", primitive.NewObjectID(), RoleCitizen, false, time.Now())
	assert.True(t, n.IsPublic)
	assert.False(t, n.ID.IsZero())
}

func TestNewNote_OfficerMayWriteInternalNotes(t *testing.T) {
	n := NewNote("check land registry", primitive.NewObjectID(), RoleOfficer, false, time.Now())
	assert.False(t, n.IsPublic)
}

func TestVisibleNotes(t *testing.T) {
	now := time.Now()
	notes := []Note{
		NewNote("public", primitive.NewObjectID(), RoleOfficer, true, now),
		NewNote("internal", primitive.NewObjectID(), RoleOfficer, false, now),
		NewNote("citizen", primitive.NewObjectID(), RoleCitizen, false, now),
	}

	assert.Len(t, VisibleNotes(notes, true), 3)

	visible := VisibleNotes(notes, false)
	assert.Len(t, visible, 2)
	assert.Equal(t, "public", visible[0].Content)
	assert.Equal(t, "citizen", visible[1].Content)

	// the original slice is untouched
	assert.Equal(t, "internal", notes[1].Content)
}

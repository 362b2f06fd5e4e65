package workflow

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note is one entry of a record's append-only note trail.
type Note struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Content    string             `json:"content" bson:"content"`
	Author     primitive.ObjectID `json:"author" bson:"author"`
	AuthorRole Role               `json:"authorRole" bson:"authorRole"`
	IsPublic   bool               `json:"isPublic" bson:"isPublic"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// StatusChange records a single transition in the record's history.
type StatusChange struct {
	From   Status             `json:"from" bson:"from"`
	To     Status             `json:"to" bson:"to"`
	By     primitive.ObjectID `json:"by" bson:"by"`
	ByRole Role               `json:"byRole" bson:"byRole"`
	At     time.Time          `json:"at" bson:"at"`
}

// Attachment is a stored file owned by exactly one record.
type Attachment struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	OriginalName string             `json:"originalName" bson:"originalName"`
	StoragePath  string             `json:"storagePath" bson:"storagePath"`
	URL          string             `json:"url" bson:"url"`
	MimeType     string             `json:"mimeType" bson:"mimeType"`
	Size         int64              `json:"size" bson:"size"`
	UploadedAt   time.Time          `json:"uploadedAt" bson:"uploadedAt"`
}

// NewNote builds a note. Citizens can only write public notes.
func NewNote(content string, author primitive.ObjectID, role Role, public bool, now time.Time) Note {
	if !role.Privileged() {
		public = true
	}
	return Note{
		ID:         primitive.NewObjectID(),
		Content:    content,
		Author:     author,
		AuthorRole: role,
		IsPublic:   public,
		CreatedAt:  now,
	}
}

// VisibleNotes returns the notes a viewer may read. Officers read everything;
// everyone else reads public notes only. The input slice is never modified.
func VisibleNotes(notes []Note, privileged bool) []Note {
	if privileged {
		return notes
	}
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.IsPublic {
			out = append(out, n)
		}
	}
	return out
}

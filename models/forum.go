package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/workflow"
)

// ReportThreshold is the number of distinct reports that flags content for review.
const ReportThreshold = 3

// Vote directions
const (
	VoteUp   = "up"
	VoteDown = "down"
	VoteNone = "none"
)

// Discussion holds the structure for the discussions collection
type Discussion struct {
	WorkflowFields `bson:",inline"`

	Title      string               `json:"title" bson:"title"`
	Content    string               `json:"content" bson:"content"`
	Category   string               `json:"category" bson:"category"`
	Tags       []string             `json:"tags" bson:"tags"`
	Upvotes    []primitive.ObjectID `json:"-" bson:"upvotes"`
	Downvotes  []primitive.ObjectID `json:"-" bson:"downvotes"`
	Votes      *VoteSummary         `json:"votes,omitempty" bson:"-"`
	Reports    []ContentReport      `json:"reports,omitempty" bson:"reports"`
	Views      int64                `json:"views" bson:"views"`
	ReplyCount int64                `json:"replyCount" bson:"replyCount"`
	IsPinned   bool                 `json:"isPinned" bson:"isPinned"`
}

// Reply holds the structure for the forumreplies collection
type Reply struct {
	ID         primitive.ObjectID   `json:"_id" bson:"_id"`
	Discussion primitive.ObjectID   `json:"discussion" bson:"discussion"`
	Author     primitive.ObjectID   `json:"author" bson:"author"`
	Content    string               `json:"content" bson:"content"`
	Status     workflow.Status      `json:"status" bson:"status"`
	Upvotes    []primitive.ObjectID `json:"-" bson:"upvotes"`
	Downvotes  []primitive.ObjectID `json:"-" bson:"downvotes"`
	Votes      *VoteSummary         `json:"votes,omitempty" bson:"-"`
	Reports    []ContentReport      `json:"reports,omitempty" bson:"reports"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// ContentReport is one user's report against forum content
type ContentReport struct {
	Reporter  primitive.ObjectID `json:"reporter" bson:"reporter"`
	Reason    string             `json:"reason" bson:"reason"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// DiscussionRequest is the body for creating or editing a discussion
type DiscussionRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// ReplyRequest is the body for posting a reply
type ReplyRequest struct {
	Content string `json:"content"`
}

// VoteRequest is the body of the vote endpoints
type VoteRequest struct {
	Type string `json:"type"`
}

// ReportRequest is the body of the report endpoints
type ReportRequest struct {
	Reason string `json:"reason"`
}

// VoteSummary is returned after a vote
type VoteSummary struct {
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
	Score     int    `json:"score"`
	UserVote  string `json:"userVote"`
}

// Tally builds a vote summary for the given voter.
func Tally(up, down []primitive.ObjectID, voter primitive.ObjectID) VoteSummary {
	vs := VoteSummary{Upvotes: len(up), Downvotes: len(down), Score: len(up) - len(down), UserVote: VoteNone}
	for _, id := range up {
		if id == voter {
			vs.UserVote = VoteUp
		}
	}
	for _, id := range down {
		if id == voter {
			vs.UserVote = VoteDown
		}
	}
	return vs
}

// PinRequest is the body of PUT /api/forums/discussions/{id}/pin
type PinRequest struct {
	Pinned bool `json:"pinned"`
}

package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const (
	discussionName = "discussions"
	replyName      = "forumreplies"
)

// DiscussionDatabase contains the methods to use with the discussion database
type DiscussionDatabase interface {
	EntityDatabase[models.Discussion]
}

// NewDiscussionDatabase initializes a new instance of discussion database with the provided db connection
func NewDiscussionDatabase(db DatabaseHelper) DiscussionDatabase {
	return NewEntityDatabase[models.Discussion](db, discussionName)
}

// ReplyDatabase contains the methods to use with the forum reply database
type ReplyDatabase interface {
	EntityDatabase[models.Reply]
}

// NewReplyDatabase initializes a new instance of reply database with the provided db connection
func NewReplyDatabase(db DatabaseHelper) ReplyDatabase {
	return NewEntityDatabase[models.Reply](db, replyName)
}

package model

import (
	"errors"
)

// Comment is a node of a subject's comment thread.
// Replies holds only the immediate children, oldest first.
type Comment struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	AuthorID        string    `json:"author_id"`
	TimestampMillis int64     `json:"timestamp"`
	Replies         []Comment `json:"replies"`
}

// CreateCommentRequest is the request body for creating a comment or a reply.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentListResponse wraps a subject's comment tree.
type CommentListResponse struct {
	SubjectID string    `json:"subject_id"`
	Comments  []Comment `json:"comments"`
	Total     int       `json:"total"`
}

// Store field names for comment nodes. Older clients wrote the text under
// "text" or "reply" and identified authors by email only.
const (
	CommentFieldText      = "comment"
	CommentFieldUserID    = "userId"
	CommentFieldUserEmail = "userEmail"
	CommentFieldTimestamp = "timestamp"
	CommentFieldReplies   = "replies"
)

// Comment constraints
const (
	MaxCommentLength = 2200
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrContentRequired = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrSubjectRequired = errors.New("subject id is required")
)

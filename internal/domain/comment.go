package domain

import "time"

// Comment roots and replies live in the same store; a non-nil ParentID
// marks a reply. Resolution is one-way.
type Comment struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Collection string     `json:"collection"`
	UserID     string     `json:"user_id"`
	Content    string     `json:"content"`
	Field      *string    `json:"field,omitempty"`
	Position   *int       `json:"position,omitempty"`
	ParentID   *string    `json:"parent_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	IsResolved bool       `json:"is_resolved"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type AddCommentRequest struct {
	DocumentID string  `json:"document_id" validate:"required"`
	Collection string  `json:"collection" validate:"required"`
	UserID     string  `json:"user_id" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	Field      *string `json:"field"`
	Position   *int    `json:"position"`
	ParentID   *string `json:"parent_id"`
}

type CommentFilter struct {
	Field      *string
	IsResolved *bool
}

type ResolveCommentRequest struct {
	ResolvedBy string `json:"resolved_by" validate:"required"`
}

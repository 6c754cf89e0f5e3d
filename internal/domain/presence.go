package domain

import "time"

type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// UserPresence is advisory state: last write wins per user, no merge of
// concurrent updates beyond newest last_seen.
type UserPresence struct {
	UserID    string          `json:"user_id"`
	Cursor    *CursorPosition `json:"cursor,omitempty"`
	Selection *SelectionRange `json:"selection,omitempty"`
	IsActive  bool            `json:"is_active"`
	LastSeen  time.Time       `json:"last_seen"`
}

type UpdatePresenceRequest struct {
	UserID    string          `json:"user_id" validate:"required"`
	Cursor    *CursorPosition `json:"cursor"`
	Selection *SelectionRange `json:"selection"`
	IsActive  bool            `json:"is_active"`
}

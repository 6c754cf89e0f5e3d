package domain

import (
	"encoding/json"
	"time"
)

type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
)

// ChangeEvent is immutable once recorded. The log keeps insertion order
// per document; values are opaque JSON supplied by the caller.
type ChangeEvent struct {
	DocumentID string          `json:"document_id"`
	Collection string          `json:"collection"`
	UserID     string          `json:"user_id"`
	ChangeType ChangeType      `json:"change_type"`
	Field      string          `json:"field,omitempty"`
	OldValue   json.RawMessage `json:"old_value,omitempty"`
	NewValue   json.RawMessage `json:"new_value,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type RecordChangeRequest struct {
	DocumentID string          `json:"document_id" validate:"required"`
	Collection string          `json:"collection" validate:"required"`
	UserID     string          `json:"user_id" validate:"required"`
	ChangeType ChangeType      `json:"change_type" validate:"required,oneof=create update delete"`
	Field      string          `json:"field"`
	OldValue   json.RawMessage `json:"old_value"`
	NewValue   json.RawMessage `json:"new_value"`
}

// HistoryQuery filters are combined with AND; pagination is positional
// over the filtered view, oldest first.
type HistoryQuery struct {
	Limit    int
	Offset   int
	UserID   string
	FromDate *time.Time
	ToDate   *time.Time
}

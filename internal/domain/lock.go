package domain

import "time"

type LockType string

const (
	LockTypeExclusive LockType = "exclusive"
	LockTypeShared    LockType = "shared"
)

type DocumentLock struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Collection string     `json:"collection"`
	UserID     string     `json:"user_id"`
	LockType   LockType   `json:"lock_type"`
	AcquiredAt time.Time  `json:"acquired_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
}

func (l *DocumentLock) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

type AcquireLockRequest struct {
	DocumentID string     `json:"document_id" validate:"required"`
	Collection string     `json:"collection" validate:"required"`
	UserID     string     `json:"user_id" validate:"required"`
	LockType   LockType   `json:"lock_type" validate:"required,oneof=exclusive shared"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

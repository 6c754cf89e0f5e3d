package domain

import "time"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Participant struct {
	UserID   string        `json:"user_id"`
	Presence *UserPresence `json:"presence,omitempty"`
}

type CollaborationSession struct {
	ID           string        `json:"id"`
	DocumentID   string        `json:"document_id"`
	Collection   string        `json:"collection"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	IsActive     bool          `json:"is_active"`
}

func (s *CollaborationSession) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

type CreateSessionRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	Collection string `json:"collection" validate:"required"`
	User       User   `json:"user" validate:"required"`
}

type JoinSessionRequest struct {
	User User `json:"user" validate:"required"`
}

type LeaveSessionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

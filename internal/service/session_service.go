package service

import (
	"context"
	"log"
	"sync"
	"time"

	"cms-collab-server/internal/domain"
	"cms-collab-server/internal/repository"

	"github.com/google/uuid"
)

const sessionArchiveCollection = "collab_sessions"

// SessionService is the registry of collaboration sessions and the
// presence tracker for their participants. Sessions are deactivated,
// never hard-deleted; deactivated sessions are archived to the store
// when one is configured.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CollaborationSession

	inactivityThreshold time.Duration
	presenceStaleness   time.Duration
	store               repository.Store
}

func NewSessionService(inactivityThreshold, presenceStaleness time.Duration, store repository.Store) *SessionService {
	return &SessionService{
		sessions:            make(map[string]*domain.CollaborationSession),
		inactivityThreshold: inactivityThreshold,
		presenceStaleness:   presenceStaleness,
		store:               store,
	}
}

func (s *SessionService) CreateSession(req *domain.CreateSessionRequest) (*domain.CollaborationSession, error) {
	if req.DocumentID == "" {
		return nil, &ValidationError{Msg: "document id is required"}
	}
	if req.User.ID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}

	now := time.Now()
	session := &domain.CollaborationSession{
		ID:           uuid.New().String(),
		DocumentID:   req.DocumentID,
		Collection:   req.Collection,
		Participants: []domain.Participant{{UserID: req.User.ID}},
		CreatedAt:    now,
		UpdatedAt:    now,
		IsActive:     true,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return snapshotSession(session), nil
}

func (s *SessionService) JoinSession(sessionID string, user domain.User) (*domain.CollaborationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	if !session.HasParticipant(user.ID) {
		session.Participants = append(session.Participants, domain.Participant{UserID: user.ID})
	}
	session.UpdatedAt = time.Now()

	return snapshotSession(session), nil
}

// LeaveSession is idempotent: leaving twice, or leaving with a user id
// that never joined, is a no-op. The session is deactivated once its
// last participant leaves.
func (s *SessionService) LeaveSession(sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return &NotFoundError{Entity: "session", ID: sessionID}
	}

	remaining := session.Participants[:0]
	for _, p := range session.Participants {
		if p.UserID != userID {
			remaining = append(remaining, p)
		}
	}
	session.Participants = remaining
	session.UpdatedAt = time.Now()

	if len(session.Participants) == 0 && session.IsActive {
		session.IsActive = false
		s.archive(session)
	}

	return nil
}

func (s *SessionService) GetSession(sessionID string) (*domain.CollaborationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}
	return snapshotSession(session), nil
}

func (s *SessionService) GetActiveSessions(documentID string) []*domain.CollaborationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*domain.CollaborationSession
	for _, session := range s.sessions {
		if session.IsActive && session.DocumentID == documentID {
			sessions = append(sessions, snapshotSession(session))
		}
	}
	return sessions
}

func (s *SessionService) GetAllActiveSessions() []*domain.CollaborationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*domain.CollaborationSession
	for _, session := range s.sessions {
		if session.IsActive {
			sessions = append(sessions, snapshotSession(session))
		}
	}
	return sessions
}

// CleanupInactiveSessions deactivates sessions idle past the
// inactivity threshold. The host schedules this sweep; nothing inside
// the service runs it on a timer.
func (s *SessionService) CleanupInactiveSessions() int {
	cutoff := time.Now().Add(-s.inactivityThreshold)

	s.mu.Lock()
	defer s.mu.Unlock()

	deactivated := 0
	for _, session := range s.sessions {
		if session.IsActive && session.UpdatedAt.Before(cutoff) {
			session.IsActive = false
			s.archive(session)
			deactivated++
		}
	}
	return deactivated
}

// UpdatePresence overwrites the participant's presence, last write
// wins. LastSeen is stamped by the server, so the newest accepted
// update is always the winner.
func (s *SessionService) UpdatePresence(sessionID string, req *domain.UpdatePresenceRequest) (*domain.UserPresence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	idx := -1
	for i, p := range session.Participants {
		if p.UserID == req.UserID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &AuthorizationError{Msg: "user is not a participant"}
	}

	presence := &domain.UserPresence{
		UserID:    req.UserID,
		Cursor:    req.Cursor,
		Selection: req.Selection,
		IsActive:  req.IsActive,
		LastSeen:  time.Now(),
	}
	session.Participants[idx].Presence = presence
	session.UpdatedAt = time.Now()

	out := *presence
	return &out, nil
}

// GetPresences lists the known presences of a session's participants.
// Participants that never reported presence are omitted; they count as
// inactive.
func (s *SessionService) GetPresences(sessionID string) ([]*domain.UserPresence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	var presences []*domain.UserPresence
	for _, p := range session.Participants {
		if p.Presence != nil {
			presence := *p.Presence
			presences = append(presences, &presence)
		}
	}
	return presences, nil
}

// CleanupInactivePresences drops presence entries that are stale past
// the staleness window or explicitly inactive. Afterwards GetPresences
// returns active entries only.
func (s *SessionService) CleanupInactivePresences(sessionID string) error {
	cutoff := time.Now().Add(-s.presenceStaleness)

	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return &NotFoundError{Entity: "session", ID: sessionID}
	}

	for i := range session.Participants {
		presence := session.Participants[i].Presence
		if presence == nil {
			continue
		}
		if !presence.IsActive || presence.LastSeen.Before(cutoff) {
			session.Participants[i].Presence = nil
		}
	}
	return nil
}

func (s *SessionService) archive(session *domain.CollaborationSession) {
	if s.store == nil {
		return
	}
	if err := s.store.Update(context.Background(), sessionArchiveCollection, session.ID, session); err != nil {
		log.Printf("[SessionService] failed to archive session %s: %v", session.ID, err)
	}
}

func snapshotSession(session *domain.CollaborationSession) *domain.CollaborationSession {
	out := *session
	out.Participants = make([]domain.Participant, len(session.Participants))
	copy(out.Participants, session.Participants)
	return &out
}

package service

import (
	"errors"
	"testing"
	"time"

	"cms-collab-server/internal/domain"
)

func newSessionService() *SessionService {
	return NewSessionService(time.Hour, 5*time.Minute, nil)
}

func createSession(t *testing.T, s *SessionService, docID, userID string) *domain.CollaborationSession {
	t.Helper()
	session, err := s.CreateSession(&domain.CreateSessionRequest{
		DocumentID: docID,
		Collection: "pages",
		User:       domain.User{ID: userID},
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func TestSessionService_CreateSession(t *testing.T) {
	s := newSessionService()
	session := createSession(t, s, "doc1", "user1")

	if !session.IsActive {
		t.Error("new session should be active")
	}
	if len(session.Participants) != 1 || session.Participants[0].UserID != "user1" {
		t.Errorf("expected single participant user1, got %+v", session.Participants)
	}
}

func TestSessionService_CreateSessionValidation(t *testing.T) {
	s := newSessionService()

	_, err := s.CreateSession(&domain.CreateSessionRequest{
		Collection: "pages",
		User:       domain.User{ID: "user1"},
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for empty document id, got %v", err)
	}
}

func TestSessionService_JoinSession(t *testing.T) {
	s := newSessionService()
	session := createSession(t, s, "doc1", "user1")

	joined, err := s.JoinSession(session.ID, domain.User{ID: "user2"})
	if err != nil {
		t.Fatalf("JoinSession() error = %v", err)
	}
	if len(joined.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(joined.Participants))
	}

	// Joining twice does not duplicate the participant.
	joined, err = s.JoinSession(session.ID, domain.User{ID: "user2"})
	if err != nil {
		t.Fatalf("repeated JoinSession() error = %v", err)
	}
	if len(joined.Participants) != 2 {
		t.Fatalf("expected 2 participants after repeat join, got %d", len(joined.Participants))
	}

	_, err = s.JoinSession("missing", domain.User{ID: "user3"})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown session, got %v", err)
	}
}

func TestSessionService_LastLeaveDeactivates(t *testing.T) {
	s := newSessionService()
	session := createSession(t, s, "doc1", "user1")
	s.JoinSession(session.ID, domain.User{ID: "user2"})

	if err := s.LeaveSession(session.ID, "user1"); err != nil {
		t.Fatalf("LeaveSession() error = %v", err)
	}
	got, _ := s.GetSession(session.ID)
	if !got.IsActive {
		t.Error("session should stay active while participants remain")
	}

	if err := s.LeaveSession(session.ID, "user2"); err != nil {
		t.Fatalf("LeaveSession() error = %v", err)
	}
	got, _ = s.GetSession(session.ID)
	if got.IsActive {
		t.Error("session should deactivate when last participant leaves")
	}
	if len(got.Participants) != 0 {
		t.Errorf("expected no participants, got %d", len(got.Participants))
	}

	// Leaving again is a no-op.
	if err := s.LeaveSession(session.ID, "user2"); err != nil {
		t.Fatalf("repeated LeaveSession() error = %v", err)
	}
}

func TestSessionService_GetActiveSessions(t *testing.T) {
	s := newSessionService()
	createSession(t, s, "doc1", "user1")
	createSession(t, s, "doc1", "user2")
	other := createSession(t, s, "doc2", "user3")

	// Concurrent sessions for the same document are legal and
	// independent.
	if got := len(s.GetActiveSessions("doc1")); got != 2 {
		t.Errorf("GetActiveSessions(doc1) = %d, want 2", got)
	}
	if got := len(s.GetAllActiveSessions()); got != 3 {
		t.Errorf("GetAllActiveSessions() = %d, want 3", got)
	}

	s.LeaveSession(other.ID, "user3")
	if got := len(s.GetActiveSessions("doc2")); got != 0 {
		t.Errorf("GetActiveSessions(doc2) = %d, want 0 after deactivation", got)
	}
}

func TestSessionService_CleanupInactiveSessions(t *testing.T) {
	s := NewSessionService(time.Millisecond, 5*time.Minute, nil)
	session := createSession(t, s, "doc1", "user1")

	time.Sleep(5 * time.Millisecond)

	if n := s.CleanupInactiveSessions(); n != 1 {
		t.Fatalf("CleanupInactiveSessions() = %d, want 1", n)
	}

	got, err := s.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() after cleanup error = %v", err)
	}
	if got.IsActive {
		t.Error("idle session should be deactivated, not deleted")
	}
}

func TestSessionService_UpdatePresence(t *testing.T) {
	s := newSessionService()
	session := createSession(t, s, "doc1", "user1")

	presence, err := s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{
		UserID:   "user1",
		Cursor:   &domain.CursorPosition{Line: 3, Column: 7},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("UpdatePresence() error = %v", err)
	}
	if presence.Cursor == nil || presence.Cursor.Line != 3 {
		t.Errorf("unexpected cursor: %+v", presence.Cursor)
	}
	if presence.LastSeen.IsZero() {
		t.Error("LastSeen should be stamped")
	}

	// Last write wins: a second update replaces the first wholesale.
	presence, err = s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{
		UserID:    "user1",
		Selection: &domain.SelectionRange{Start: 1, End: 9},
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("UpdatePresence() error = %v", err)
	}
	if presence.Cursor != nil {
		t.Error("previous cursor should not survive an overwrite")
	}

	_, err = s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{
		UserID:   "intruder",
		IsActive: true,
	})
	var authzErr *AuthorizationError
	if !errors.As(err, &authzErr) {
		t.Fatalf("expected AuthorizationError for non-participant, got %v", err)
	}
}

func TestSessionService_GetPresences(t *testing.T) {
	s := newSessionService()
	session := createSession(t, s, "doc1", "user1")
	s.JoinSession(session.ID, domain.User{ID: "user2"})

	s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{UserID: "user1", IsActive: true})

	presences, err := s.GetPresences(session.ID)
	if err != nil {
		t.Fatalf("GetPresences() error = %v", err)
	}
	// user2 never reported presence and is omitted.
	if len(presences) != 1 || presences[0].UserID != "user1" {
		t.Fatalf("expected only user1 presence, got %+v", presences)
	}
}

func TestSessionService_CleanupInactivePresences(t *testing.T) {
	s := NewSessionService(time.Hour, 10*time.Millisecond, nil)
	session := createSession(t, s, "doc1", "user1")
	s.JoinSession(session.ID, domain.User{ID: "user2"})
	s.JoinSession(session.ID, domain.User{ID: "user3"})

	s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{UserID: "user1", IsActive: true})
	time.Sleep(20 * time.Millisecond)

	// user1 is now stale; user2 is fresh but inactive; user3 is fresh
	// and active.
	s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{UserID: "user2", IsActive: false})
	s.UpdatePresence(session.ID, &domain.UpdatePresenceRequest{UserID: "user3", IsActive: true})

	if err := s.CleanupInactivePresences(session.ID); err != nil {
		t.Fatalf("CleanupInactivePresences() error = %v", err)
	}

	presences, _ := s.GetPresences(session.ID)
	if len(presences) != 1 || presences[0].UserID != "user3" {
		t.Fatalf("expected only user3 to survive cleanup, got %+v", presences)
	}
	if !presences[0].IsActive {
		t.Error("surviving presence should be active")
	}
}

package collab

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"cms-collab-server/internal/cache"
	"cms-collab-server/internal/domain"
	"cms-collab-server/internal/service"
	"cms-collab-server/internal/websocket"
)

// Manager is the single entry point to the collaboration core. It
// validates through the session registry and lock manager, records into
// the change log and comment store, runs conflict detection, and fans
// events out to session participants over the hub. The bridge side
// carries the same envelopes when this process acts as a client of
// another collaboration server.
type Manager struct {
	sessions  *service.SessionService
	locks     *service.LockService
	history   *service.HistoryService
	comments  *service.CommentService
	conflicts *service.ConflictService

	hub    *websocket.Manager
	bridge *websocket.Bridge

	presenceCache cache.PresenceCache
	presenceTTL   time.Duration
}

func NewManager(
	sessions *service.SessionService,
	locks *service.LockService,
	history *service.HistoryService,
	comments *service.CommentService,
	conflicts *service.ConflictService,
	hub *websocket.Manager,
	bridge *websocket.Bridge,
	presenceCache cache.PresenceCache,
	presenceTTL time.Duration,
) *Manager {
	return &Manager{
		sessions:      sessions,
		locks:         locks,
		history:       history,
		comments:      comments,
		conflicts:     conflicts,
		hub:           hub,
		bridge:        bridge,
		presenceCache: presenceCache,
		presenceTTL:   presenceTTL,
	}
}

// Sessions

func (m *Manager) CreateSession(req *domain.CreateSessionRequest) (*domain.CollaborationSession, error) {
	return m.sessions.CreateSession(req)
}

func (m *Manager) JoinSession(sessionID string, user domain.User) (*domain.CollaborationSession, error) {
	return m.sessions.JoinSession(sessionID, user)
}

func (m *Manager) LeaveSession(sessionID, userID string) error {
	if err := m.sessions.LeaveSession(sessionID, userID); err != nil {
		return err
	}
	if m.presenceCache != nil {
		if err := m.presenceCache.RemoveMember(context.Background(), sessionID, userID); err != nil {
			log.Printf("[Collab] presence cache remove failed: %v", err)
		}
	}
	return nil
}

func (m *Manager) GetSession(sessionID string) (*domain.CollaborationSession, error) {
	return m.sessions.GetSession(sessionID)
}

func (m *Manager) GetActiveSessions(documentID string) []*domain.CollaborationSession {
	return m.sessions.GetActiveSessions(documentID)
}

func (m *Manager) GetAllActiveSessions() []*domain.CollaborationSession {
	return m.sessions.GetAllActiveSessions()
}

func (m *Manager) CleanupInactiveSessions() int {
	return m.sessions.CleanupInactiveSessions()
}

// Presence

// UpdatePresence applies the update, mirrors it to the presence cache,
// and broadcasts it to the session's other participants.
func (m *Manager) UpdatePresence(sessionID string, req *domain.UpdatePresenceRequest) (*domain.UserPresence, error) {
	presence, err := m.sessions.UpdatePresence(sessionID, req)
	if err != nil {
		return nil, err
	}

	if m.presenceCache != nil {
		if data, err := json.Marshal(presence); err == nil {
			if err := m.presenceCache.SetPresence(context.Background(), sessionID, presence.UserID, data, m.presenceTTL); err != nil {
				log.Printf("[Collab] presence cache set failed: %v", err)
			}
		}
	}

	env, err := websocket.NewEnvelope(websocket.TypePresenceUpdate, websocket.PresencePayload{
		SessionID: sessionID,
		Presence:  presence,
	})
	if err == nil && m.hub != nil {
		m.hub.BroadcastToSession(sessionID, env, presence.UserID)
	}

	return presence, nil
}

func (m *Manager) GetPresences(sessionID string) ([]*domain.UserPresence, error) {
	return m.sessions.GetPresences(sessionID)
}

func (m *Manager) CleanupInactivePresences(sessionID string) error {
	return m.sessions.CleanupInactivePresences(sessionID)
}

// Locks

func (m *Manager) AcquireLock(req *domain.AcquireLockRequest) (*domain.DocumentLock, error) {
	return m.locks.AcquireLock(req)
}

func (m *Manager) ReleaseLock(lockID string) error {
	return m.locks.ReleaseLock(lockID)
}

func (m *Manager) GetActiveLocks(documentID string) []*domain.DocumentLock {
	return m.locks.GetActiveLocks(documentID)
}

func (m *Manager) CleanupExpiredLocks() int {
	return m.locks.CleanupExpiredLocks()
}

// Changes

// RecordChange appends the event, runs conflict detection against the
// prior history, and broadcasts the change to every active session on
// the document. A detected conflict is a normal return value, not an
// error: the caller surfaces it for resolution.
func (m *Manager) RecordChange(req *domain.RecordChangeRequest) (*domain.ChangeEvent, *domain.Conflict, error) {
	event, err := m.history.RecordChange(req)
	if err != nil {
		return nil, nil, err
	}

	conflict := m.conflicts.DetectConflict(event)

	env, envErr := websocket.NewEnvelope(websocket.TypeDocumentChange, event)
	if envErr == nil && m.hub != nil {
		for _, session := range m.sessions.GetActiveSessions(event.DocumentID) {
			m.hub.BroadcastToSession(session.ID, env, event.UserID)
		}
	}

	return event, conflict, nil
}

func (m *Manager) GetChangeHistory(documentID string, query domain.HistoryQuery) []*domain.ChangeEvent {
	return m.history.GetChangeHistory(documentID, query)
}

// Comments

func (m *Manager) AddComment(req *domain.AddCommentRequest) (*domain.Comment, error) {
	return m.comments.AddComment(req)
}

func (m *Manager) GetComments(documentID string, filter domain.CommentFilter) []*domain.Comment {
	return m.comments.GetComments(documentID, filter)
}

func (m *Manager) GetComment(commentID string) (*domain.Comment, error) {
	return m.comments.GetComment(commentID)
}

func (m *Manager) ResolveComment(commentID, resolvedBy string) (*domain.Comment, error) {
	return m.comments.ResolveComment(commentID, resolvedBy)
}

// Conflicts

func (m *Manager) DetectConflict(change *domain.ChangeEvent) *domain.Conflict {
	return m.conflicts.DetectConflict(change)
}

func (m *Manager) ResolveConflict(conflictID string, req *domain.ResolveConflictRequest) (*domain.Conflict, error) {
	return m.conflicts.ResolveConflict(conflictID, req)
}

func (m *Manager) GetConflict(conflictID string) (*domain.Conflict, error) {
	return m.conflicts.GetConflict(conflictID)
}

// Transport bridge. The raw connection never leaves the manager; these
// are the only ways in and out.

func (m *Manager) ConnectWebSocket(ctx context.Context, url string, user domain.User) error {
	return m.bridge.Connect(ctx, url, user)
}

func (m *Manager) OnMessage(handler func(*websocket.Envelope)) {
	m.bridge.OnMessage(handler)
}

func (m *Manager) BroadcastPresence(sessionID string, presence *domain.UserPresence) {
	m.bridge.BroadcastPresence(sessionID, presence)
}

func (m *Manager) BroadcastChange(change *domain.ChangeEvent) {
	m.bridge.BroadcastChange(change)
}

func (m *Manager) BatchBroadcast(envelopes []*websocket.Envelope) {
	m.bridge.BatchBroadcast(envelopes)
}

func (m *Manager) Disconnect() error {
	return m.bridge.Disconnect()
}

func (m *Manager) Reconnect(ctx context.Context) (bool, error) {
	return m.bridge.Reconnect(ctx)
}

// Sweep runs all three cleanup passes. The host scheduler calls this on
// its tick; nothing here is timer-driven.
func (m *Manager) Sweep() {
	expired := m.locks.CleanupExpiredLocks()
	deactivated := m.sessions.CleanupInactiveSessions()

	for _, session := range m.sessions.GetAllActiveSessions() {
		if err := m.sessions.CleanupInactivePresences(session.ID); err != nil {
			log.Printf("[Collab] presence sweep failed for session %s: %v", session.ID, err)
		}
	}

	if expired > 0 || deactivated > 0 {
		log.Printf("[Collab] sweep: %d locks expired, %d sessions deactivated", expired, deactivated)
	}
}

package handler

import (
	"log"
	"net/http"

	"cms-collab-server/internal/collab"
	"cms-collab-server/internal/domain"
	"cms-collab-server/internal/websocket"
	"cms-collab-server/pkg/jwt"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	collab    *collab.Manager
	jwtSecret string
	upgrader  ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, collabManager *collab.Manager, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		collab:    collabManager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	}

	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		log.Printf("[WebSocket] token validation failed: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID != "" {
		session, err := h.collab.GetSession(sessionID)
		if err != nil {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		if !session.HasParticipant(claims.UserID) {
			http.Error(w, "not a session participant", http.StatusForbidden)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, sessionID, conn, h.manager)
	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// EnvelopeHandler routes inbound envelopes from connected clients into
// the collaboration manager.
type EnvelopeHandler struct {
	collab *collab.Manager
}

func NewEnvelopeHandler(collabManager *collab.Manager) *EnvelopeHandler {
	return &EnvelopeHandler{collab: collabManager}
}

func (h *EnvelopeHandler) HandleEnvelope(client *websocket.Client, env *websocket.Envelope) error {
	switch env.Type {
	case websocket.TypeAuth:
		return h.handleAuth(client, env)

	case websocket.TypePresenceUpdate:
		return h.handlePresence(client, env)

	case websocket.TypeDocumentChange:
		return h.handleChange(client, env)

	default:
		log.Printf("[WebSocket] unknown envelope type: %s", env.Type)
	}

	return nil
}

// handleAuth echoes the auth envelope back. Clients see the echo as
// their first inbound message, before any broadcast.
func (h *EnvelopeHandler) handleAuth(client *websocket.Client, env *websocket.Envelope) error {
	var payload websocket.AuthPayload
	if err := env.UnmarshalData(&payload); err != nil {
		return err
	}

	ack, err := websocket.NewEnvelope(websocket.TypeAuth, payload)
	if err != nil {
		return err
	}
	return client.Manager.SendToClient(client.ID, ack)
}

func (h *EnvelopeHandler) handlePresence(client *websocket.Client, env *websocket.Envelope) error {
	var payload websocket.PresencePayload
	if err := env.UnmarshalData(&payload); err != nil {
		return err
	}
	if payload.Presence == nil {
		return nil
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = client.SessionID
	}

	_, err := h.collab.UpdatePresence(sessionID, &domain.UpdatePresenceRequest{
		UserID:    client.UserID,
		Cursor:    payload.Presence.Cursor,
		Selection: payload.Presence.Selection,
		IsActive:  payload.Presence.IsActive,
	})
	return err
}

func (h *EnvelopeHandler) handleChange(client *websocket.Client, env *websocket.Envelope) error {
	var change domain.ChangeEvent
	if err := env.UnmarshalData(&change); err != nil {
		return err
	}

	_, _, err := h.collab.RecordChange(&domain.RecordChangeRequest{
		DocumentID: change.DocumentID,
		Collection: change.Collection,
		UserID:     client.UserID,
		ChangeType: change.ChangeType,
		Field:      change.Field,
		OldValue:   change.OldValue,
		NewValue:   change.NewValue,
	})
	return err
}

package handler

import (
	"encoding/json"
	"net/http"

	"cms-collab-server/internal/collab"
	"cms-collab-server/internal/domain"
	"cms-collab-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type SessionHandler struct {
	manager  *collab.Manager
	validate *validator.Validate
}

func NewSessionHandler(manager *collab.Manager) *SessionHandler {
	return &SessionHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.manager.CreateSession(&req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Created(w, session)
}

func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req domain.JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	session, err := h.manager.JoinSession(sessionID, req.User)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, session)
}

func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req domain.LeaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.manager.LeaveSession(sessionID, req.UserID); err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"session_id": sessionID})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.manager.GetSession(sessionID)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, session)
}

// List returns active sessions; documentId narrows to one document.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")

	var sessions []*domain.CollaborationSession
	if documentID != "" {
		sessions = h.manager.GetActiveSessions(documentID)
	} else {
		sessions = h.manager.GetAllActiveSessions()
	}

	response.Success(w, sessions)
}

func (h *SessionHandler) GetPresences(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	presences, err := h.manager.GetPresences(sessionID)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, presences)
}

func (h *SessionHandler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req domain.UpdatePresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	presence, err := h.manager.UpdatePresence(sessionID, &req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, presence)
}

func (h *SessionHandler) CleanupPresences(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.manager.CleanupInactivePresences(sessionID); err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"session_id": sessionID})
}

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

type LockHandler struct {
	manager  *collab.Manager
	validate *validator.Validate
}

func NewLockHandler(manager *collab.Manager) *LockHandler {
	return &LockHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	var req domain.AcquireLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	lock, err := h.manager.AcquireLock(&req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Created(w, lock)
}

func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	lockID := mux.Vars(r)["id"]

	if err := h.manager.ReleaseLock(lockID); err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"lock_id": lockID})
}

func (h *LockHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	if documentID == "" {
		response.BadRequest(w, "documentId is required")
		return
	}

	response.Success(w, h.manager.GetActiveLocks(documentID))
}

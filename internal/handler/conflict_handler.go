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

type ConflictHandler struct {
	manager  *collab.Manager
	validate *validator.Validate
}

func NewConflictHandler(manager *collab.Manager) *ConflictHandler {
	return &ConflictHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

// Detect checks a change against recent history without recording it.
// A nil result means the change is safe to apply.
func (h *ConflictHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var change domain.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	conflict := h.manager.DetectConflict(&change)
	response.Success(w, map[string]interface{}{"conflict": conflict})
}

func (h *ConflictHandler) Get(w http.ResponseWriter, r *http.Request) {
	conflictID := mux.Vars(r)["id"]

	conflict, err := h.manager.GetConflict(conflictID)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, conflict)
}

func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	conflictID := mux.Vars(r)["id"]

	var req domain.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	conflict, err := h.manager.ResolveConflict(conflictID, &req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, conflict)
}

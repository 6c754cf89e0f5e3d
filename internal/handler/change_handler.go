package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cms-collab-server/internal/collab"
	"cms-collab-server/internal/domain"
	"cms-collab-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type ChangeHandler struct {
	manager  *collab.Manager
	validate *validator.Validate
}

func NewChangeHandler(manager *collab.Manager) *ChangeHandler {
	return &ChangeHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

// Record appends a change. A detected concurrent edit rides along in
// the response body; it is not an error.
func (h *ChangeHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	event, conflict, err := h.manager.RecordChange(&req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"change":   event,
		"conflict": conflict,
	})
}

func (h *ChangeHandler) History(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	if documentID == "" {
		response.BadRequest(w, "documentId is required")
		return
	}

	query := domain.HistoryQuery{
		UserID: r.URL.Query().Get("userId"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			query.Offset = n
		}
	}
	if from := r.URL.Query().Get("fromDate"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			query.FromDate = &t
		}
	}
	if to := r.URL.Query().Get("toDate"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			query.ToDate = &t
		}
	}

	response.Success(w, h.manager.GetChangeHistory(documentID, query))
}

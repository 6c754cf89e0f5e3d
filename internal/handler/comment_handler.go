package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cms-collab-server/internal/collab"
	"cms-collab-server/internal/domain"
	"cms-collab-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type CommentHandler struct {
	manager  *collab.Manager
	validate *validator.Validate
}

func NewCommentHandler(manager *collab.Manager) *CommentHandler {
	return &CommentHandler{
		manager:  manager,
		validate: validator.New(),
	}
}

func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req domain.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	comment, err := h.manager.AddComment(&req)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Created(w, comment)
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	if documentID == "" {
		response.BadRequest(w, "documentId is required")
		return
	}

	var filter domain.CommentFilter
	if field := r.URL.Query().Get("field"); field != "" {
		filter.Field = &field
	}
	if resolved := r.URL.Query().Get("isResolved"); resolved != "" {
		if b, err := strconv.ParseBool(resolved); err == nil {
			filter.IsResolved = &b
		}
	}

	response.Success(w, h.manager.GetComments(documentID, filter))
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	comment, err := h.manager.GetComment(commentID)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, comment)
}

func (h *CommentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["id"]

	var req domain.ResolveCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	comment, err := h.manager.ResolveComment(commentID, req.ResolvedBy)
	if err != nil {
		response.FromServiceError(w, err)
		return
	}

	response.Success(w, comment)
}

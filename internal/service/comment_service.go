package service

import (
	"sync"
	"time"

	"cms-collab-server/internal/domain"

	"github.com/google/uuid"
)

// CommentService stores threaded comments per document and field.
// Replies carry a parent id but live in the same flat store as roots.
type CommentService struct {
	mu       sync.RWMutex
	comments map[string]*domain.Comment
}

func NewCommentService() *CommentService {
	return &CommentService{
		comments: make(map[string]*domain.Comment),
	}
}

func (s *CommentService) AddComment(req *domain.AddCommentRequest) (*domain.Comment, error) {
	if req.DocumentID == "" {
		return nil, &ValidationError{Msg: "document id is required"}
	}
	if req.UserID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}
	if req.Content == "" {
		return nil, &ValidationError{Msg: "content is required"}
	}

	if req.ParentID != nil {
		s.mu.RLock()
		_, exists := s.comments[*req.ParentID]
		s.mu.RUnlock()
		if !exists {
			return nil, &NotFoundError{Entity: "comment", ID: *req.ParentID}
		}
	}

	comment := &domain.Comment{
		ID:         uuid.New().String(),
		DocumentID: req.DocumentID,
		Collection: req.Collection,
		UserID:     req.UserID,
		Content:    req.Content,
		Field:      req.Field,
		Position:   req.Position,
		ParentID:   req.ParentID,
		CreatedAt:  time.Now(),
		IsResolved: false,
	}

	s.mu.Lock()
	s.comments[comment.ID] = comment
	s.mu.Unlock()

	out := *comment
	return &out, nil
}

func (s *CommentService) GetComments(documentID string, filter domain.CommentFilter) []*domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []*domain.Comment
	for _, c := range s.comments {
		if c.DocumentID != documentID {
			continue
		}
		if filter.Field != nil && (c.Field == nil || *c.Field != *filter.Field) {
			continue
		}
		if filter.IsResolved != nil && c.IsResolved != *filter.IsResolved {
			continue
		}
		out := *c
		comments = append(comments, &out)
	}
	return comments
}

func (s *CommentService) GetComment(commentID string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, exists := s.comments[commentID]
	if !exists {
		return nil, &NotFoundError{Entity: "comment", ID: commentID}
	}
	out := *comment
	return &out, nil
}

// ResolveComment flips is_resolved once. Repeat calls keep the first
// resolver and timestamp; there is no unresolve.
func (s *CommentService) ResolveComment(commentID, resolvedBy string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, exists := s.comments[commentID]
	if !exists {
		return nil, &NotFoundError{Entity: "comment", ID: commentID}
	}

	if !comment.IsResolved {
		now := time.Now()
		comment.IsResolved = true
		comment.ResolvedBy = &resolvedBy
		comment.ResolvedAt = &now
	}

	out := *comment
	return &out, nil
}

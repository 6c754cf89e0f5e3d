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

const changeArchiveCollection = "collab_changes"

// HistoryService is the append-only change log. Events keep insertion
// order per document; nothing is ever rewritten or removed.
type HistoryService struct {
	mu         sync.RWMutex
	byDocument map[string][]*domain.ChangeEvent

	store repository.Store
}

func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{
		byDocument: make(map[string][]*domain.ChangeEvent),
		store:      store,
	}
}

func (s *HistoryService) RecordChange(req *domain.RecordChangeRequest) (*domain.ChangeEvent, error) {
	if req.DocumentID == "" {
		return nil, &ValidationError{Msg: "document id is required"}
	}
	if req.Collection == "" {
		return nil, &ValidationError{Msg: "collection is required"}
	}
	if req.UserID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}

	event := &domain.ChangeEvent{
		DocumentID: req.DocumentID,
		Collection: req.Collection,
		UserID:     req.UserID,
		ChangeType: req.ChangeType,
		Field:      req.Field,
		OldValue:   req.OldValue,
		NewValue:   req.NewValue,
		Timestamp:  time.Now(),
	}

	s.mu.Lock()
	s.byDocument[event.DocumentID] = append(s.byDocument[event.DocumentID], event)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Create(context.Background(), changeArchiveCollection, uuid.New().String(), event); err != nil {
			log.Printf("[HistoryService] failed to archive change for %s: %v", event.DocumentID, err)
		}
	}

	out := *event
	return &out, nil
}

// GetChangeHistory pages over the filtered, insertion-ordered history
// of a document, oldest first. Pagination is positional: offset and
// limit apply after filtering.
func (s *HistoryService) GetChangeHistory(documentID string, query domain.HistoryQuery) []*domain.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*domain.ChangeEvent
	for _, event := range s.byDocument[documentID] {
		if query.UserID != "" && event.UserID != query.UserID {
			continue
		}
		if query.FromDate != nil && event.Timestamp.Before(*query.FromDate) {
			continue
		}
		if query.ToDate != nil && event.Timestamp.After(*query.ToDate) {
			continue
		}
		out := *event
		filtered = append(filtered, &out)
	}

	if query.Offset > 0 {
		if query.Offset >= len(filtered) {
			return nil
		}
		filtered = filtered[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(filtered) {
		filtered = filtered[:query.Limit]
	}
	return filtered
}

// ChangesForDocument returns the full ordered history of one document.
// The conflict detector walks this to find the most recent prior write
// to a field.
func (s *HistoryService) ChangesForDocument(documentID string) []*domain.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byDocument[documentID]
	out := make([]*domain.ChangeEvent, len(events))
	for i, event := range events {
		copied := *event
		out[i] = &copied
	}
	return out
}

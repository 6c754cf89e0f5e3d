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

const conflictArchiveCollection = "collab_conflicts"

// ConflictService flags concurrent edits by comparing an incoming
// change against the most recent prior write to the same document and
// field. Detection is field-granular: edits to different fields never
// conflict, so independent edits merge lock-free.
type ConflictService struct {
	mu        sync.RWMutex
	conflicts map[string]*domain.Conflict

	history *HistoryService
	store   repository.Store
}

func NewConflictService(history *HistoryService, store repository.Store) *ConflictService {
	return &ConflictService{
		conflicts: make(map[string]*domain.Conflict),
		history:   history,
		store:     store,
	}
}

// DetectConflict returns a conflict when the most recent prior change
// to change's document+field was authored by someone else, nil
// otherwise. A log entry matching the candidate's author and timestamp
// is the candidate itself (already recorded) and is skipped.
//
// Only the single most recent prior write per field is compared; a
// burst of three writers can under-detect between the first and third.
func (s *ConflictService) DetectConflict(change *domain.ChangeEvent) *domain.Conflict {
	if change == nil || change.DocumentID == "" || change.Field == "" {
		return nil
	}

	events := s.history.ChangesForDocument(change.DocumentID)

	var prior *domain.ChangeEvent
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.Field != change.Field {
			continue
		}
		if event.UserID == change.UserID && event.Timestamp.Equal(change.Timestamp) {
			continue
		}
		prior = event
		break
	}

	if prior == nil || prior.UserID == change.UserID {
		return nil
	}

	conflict := &domain.Conflict{
		ID:                uuid.New().String(),
		DocumentID:        change.DocumentID,
		Field:             change.Field,
		CandidateChange:   change,
		ConflictingChange: prior,
		ConflictType:      domain.ConflictTypeConcurrentEdit,
		IsResolved:        false,
		DetectedAt:        time.Now(),
	}

	s.mu.Lock()
	s.conflicts[conflict.ID] = conflict
	s.mu.Unlock()

	out := *conflict
	return &out
}

// ResolveConflict records the chosen value and resolver. The document
// itself is untouched; applying selected_value to the store is the
// caller's job.
func (s *ConflictService) ResolveConflict(conflictID string, req *domain.ResolveConflictRequest) (*domain.Conflict, error) {
	if req.ResolvedBy == "" {
		return nil, &ValidationError{Msg: "resolved_by is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conflict, exists := s.conflicts[conflictID]
	if !exists {
		return nil, &NotFoundError{Entity: "conflict", ID: conflictID}
	}

	if !conflict.IsResolved {
		now := time.Now()
		conflict.IsResolved = true
		conflict.SelectedValue = req.SelectedValue
		conflict.ResolvedBy = &req.ResolvedBy
		conflict.ResolvedAt = &now
		s.archiveLocked(conflict)
	}

	out := *conflict
	return &out, nil
}

func (s *ConflictService) GetConflict(conflictID string) (*domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conflict, exists := s.conflicts[conflictID]
	if !exists {
		return nil, &NotFoundError{Entity: "conflict", ID: conflictID}
	}
	out := *conflict
	return &out, nil
}

func (s *ConflictService) archiveLocked(conflict *domain.Conflict) {
	if s.store == nil {
		return
	}
	if err := s.store.Update(context.Background(), conflictArchiveCollection, conflict.ID, conflict); err != nil {
		log.Printf("[ConflictService] failed to archive conflict %s: %v", conflict.ID, err)
	}
}

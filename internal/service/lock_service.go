package service

import (
	"sync"
	"time"

	"cms-collab-server/internal/domain"

	"github.com/google/uuid"
)

// LockService is the sole arbiter of write exclusivity on a document.
// Per (document, collection): at most one active exclusive lock, and an
// exclusive lock never coexists with any other active lock. Shared
// locks stack freely.
type LockService struct {
	mu    sync.RWMutex
	locks map[string]*domain.DocumentLock
}

func NewLockService() *LockService {
	return &LockService{
		locks: make(map[string]*domain.DocumentLock),
	}
}

func (s *LockService) AcquireLock(req *domain.AcquireLockRequest) (*domain.DocumentLock, error) {
	if req.DocumentID == "" {
		return nil, &ValidationError{Msg: "document id is required"}
	}
	if req.UserID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}
	if req.LockType != domain.LockTypeExclusive && req.LockType != domain.LockTypeShared {
		return nil, &ValidationError{Msg: "lock type must be exclusive or shared"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lock := range s.locks {
		if !lock.IsActive || lock.DocumentID != req.DocumentID || lock.Collection != req.Collection {
			continue
		}
		if lock.LockType == domain.LockTypeExclusive {
			return nil, &ConflictError{Msg: "document is already locked exclusively"}
		}
		if req.LockType == domain.LockTypeExclusive {
			return nil, &ConflictError{Msg: "document has active shared locks"}
		}
	}

	lock := &domain.DocumentLock{
		ID:         uuid.New().String(),
		DocumentID: req.DocumentID,
		Collection: req.Collection,
		UserID:     req.UserID,
		LockType:   req.LockType,
		AcquiredAt: time.Now(),
		ExpiresAt:  req.ExpiresAt,
		IsActive:   true,
	}
	s.locks[lock.ID] = lock

	out := *lock
	return &out, nil
}

// ReleaseLock deactivates the lock. Releasing an already-released lock
// is a no-op; an unknown id is an error.
func (s *LockService) ReleaseLock(lockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[lockID]
	if !exists {
		return &NotFoundError{Entity: "lock", ID: lockID}
	}
	lock.IsActive = false
	return nil
}

// GetActiveLocks returns the active locks on a document across all
// collections.
func (s *LockService) GetActiveLocks(documentID string) []*domain.DocumentLock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var locks []*domain.DocumentLock
	for _, lock := range s.locks {
		if lock.IsActive && lock.DocumentID == documentID {
			out := *lock
			locks = append(locks, &out)
		}
	}
	return locks
}

// CleanupExpiredLocks deactivates every active lock whose expiry has
// passed. Expiry is sweep-driven; there is no timer inside the service.
func (s *LockService) CleanupExpiredLocks() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, lock := range s.locks {
		if lock.IsActive && lock.Expired(now) {
			lock.IsActive = false
			expired++
		}
	}
	return expired
}

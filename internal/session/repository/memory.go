package repository

import (
	"context"
	"sync"
	"time"

	"rental-backoffice/backend/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory. All operations hold a single mutex,
// which makes ConsumeByToken atomic.
type MemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]*domain.Session
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byToken: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[s.TokenValue]; ok {
		return ErrDuplicateToken
	}
	cp := *s
	r.byToken[s.TokenValue] = &cp
	return nil
}

func (r *MemoryRepository) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) DeleteByToken(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[token]; !ok {
		return false, nil
	}
	delete(r.byToken, token)
	return true, nil
}

func (r *MemoryRepository) ConsumeByToken(_ context.Context, token, userID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byToken[token]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	delete(r.byToken, token)
	return s, nil
}

func (r *MemoryRepository) DeleteAllByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for tok, s := range r.byToken {
		if s.UserID == userID {
			delete(r.byToken, tok)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for tok, s := range r.byToken {
		if s.Expired(before) {
			delete(r.byToken, tok)
			n++
		}
	}
	return n, nil
}

// CountByUser returns the number of live sessions for userID.
func (r *MemoryRepository) CountByUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byToken {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

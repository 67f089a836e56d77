package repository

import (
	"context"
	"sync"

	"rental-backoffice/backend/internal/user/domain"
)

// MemoryRepository is an in-process user store used by tests and SESSION_STORE=memory dev runs.
type MemoryRepository struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	names map[string]string
	phone map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*domain.User),
		names: make(map[string]string),
		phone: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[username]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[u.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := r.phone[u.Phone]; ok {
		return ErrPhoneTaken
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.names[u.Username] = u.ID
	r.phone[u.Phone] = u.ID
	return nil
}

func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

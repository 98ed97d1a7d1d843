package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
)

// Storage implements storage.Storage in memory for testing and development.
type Storage struct {
	mappings   map[string]model.URLMapping
	codeIndex  map[string]string
	users      map[string]model.User
	emailIndex map[string]string
	mutex      sync.RWMutex
}

// NewStorage creates a new in-memory storage instance.
func NewStorage() *Storage {
	return &Storage{
		mappings:   make(map[string]model.URLMapping),
		codeIndex:  make(map[string]string),
		users:      make(map[string]model.User),
		emailIndex: make(map[string]string),
	}
}

// Insert stores a new mapping unless its short code is already used.
func (s *Storage) Insert(_ context.Context, m model.URLMapping) (model.URLMapping, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.codeIndex[m.ShortCode]; exists {
		return model.URLMapping{}, storage.ErrCodeTaken
	}

	s.mappings[m.ID] = m
	s.codeIndex[m.ShortCode] = m.ID
	return m, nil
}

// FindByCode returns the mapping that owns the short code.
func (s *Storage) FindByCode(_ context.Context, code string) (model.URLMapping, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, found := s.codeIndex[code]
	if !found {
		return model.URLMapping{}, storage.ErrNotFound
	}
	return s.mappings[id], nil
}

// FindByID returns the mapping with the given id.
func (s *Storage) FindByID(_ context.Context, id string) (model.URLMapping, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	m, found := s.mappings[id]
	if !found {
		return model.URLMapping{}, storage.ErrNotFound
	}
	return m, nil
}

// ListByOwner returns every mapping owned by ownerID.
func (s *Storage) ListByOwner(_ context.Context, ownerID string) ([]model.URLMapping, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]model.URLMapping, 0)
	for _, m := range s.mappings {
		if m.OwnerID == ownerID {
			result = append(result, m)
		}
	}
	return result, nil
}

// UpdateIfOwner patches the mapping when it exists and belongs to ownerID.
func (s *Storage) UpdateIfOwner(_ context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, found := s.mappings[id]
	if !found || !existing.OwnedBy(ownerID) {
		return model.URLMapping{}, storage.ErrNotFound
	}

	if patch.ChangesCode(existing) {
		if otherID, taken := s.codeIndex[*patch.ShortCode]; taken && otherID != id {
			return model.URLMapping{}, storage.ErrCodeTaken
		}
		delete(s.codeIndex, existing.ShortCode)
	}

	updated := patch.Apply(existing)
	s.mappings[id] = updated
	s.codeIndex[updated.ShortCode] = id
	return updated, nil
}

// DeleteIfOwner removes the mapping when it exists and belongs to ownerID.
func (s *Storage) DeleteIfOwner(_ context.Context, id, ownerID string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, found := s.mappings[id]
	if !found || !existing.OwnedBy(ownerID) {
		return false, nil
	}

	delete(s.mappings, id)
	delete(s.codeIndex, existing.ShortCode)
	return true, nil
}

// CreateUser stores a user unless the email is already registered.
// Emails are compared case-insensitively.
func (s *Storage) CreateUser(_ context.Context, u model.User) (model.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.emailIndex[key]; exists {
		return model.User{}, storage.ErrEmailTaken
	}

	s.users[u.ID] = u
	s.emailIndex[key] = u.ID
	return u, nil
}

// DeleteUser removes the user with the given id. It reports whether a user
// was removed.
func (s *Storage) DeleteUser(_ context.Context, id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	u, found := s.users[id]
	if !found {
		return false
	}

	delete(s.users, id)
	delete(s.emailIndex, strings.ToLower(u.Email))
	return true
}

// FindUserByEmail returns the user registered with email.
func (s *Storage) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, found := s.emailIndex[strings.ToLower(email)]
	if !found {
		return model.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// FindUserByID returns the user with the given id.
func (s *Storage) FindUserByID(_ context.Context, id string) (model.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	u, found := s.users[id]
	if !found {
		return model.User{}, storage.ErrNotFound
	}
	return u, nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Stats returns the number of stored mappings and users.
func (s *Storage) Stats() (mappings int, users int) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.mappings), len(s.users)
}

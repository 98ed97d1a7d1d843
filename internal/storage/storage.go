package storage

import (
	"context"
	"errors"

	"github.com/MikhailRaia/codekeeper/internal/model"
)

var (
	// ErrCodeTaken is returned when a short code is already used by another mapping.
	ErrCodeTaken = errors.New("short code already exists")
	// ErrEmailTaken is returned when a user with the same email already exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
)

// MappingStore persists URL mappings keyed by ID with a unique index on
// the short code. Every operation is atomic for a single record.
type MappingStore interface {
	// Insert stores m or fails with ErrCodeTaken.
	Insert(ctx context.Context, m model.URLMapping) (model.URLMapping, error)
	FindByCode(ctx context.Context, code string) (model.URLMapping, error)
	FindByID(ctx context.Context, id string) (model.URLMapping, error)
	// ListByOwner returns the owner's mappings in no particular order.
	ListByOwner(ctx context.Context, ownerID string) ([]model.URLMapping, error)
	// UpdateIfOwner applies patch to the mapping with the given id when it
	// belongs to ownerID. It fails with ErrNotFound when there is no such
	// mapping and with ErrCodeTaken when the new code is used elsewhere.
	UpdateIfOwner(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error)
	// DeleteIfOwner removes the mapping when it belongs to ownerID and
	// reports whether anything was removed.
	DeleteIfOwner(ctx context.Context, id, ownerID string) (bool, error)
}

// UserStore persists user accounts with a unique index on the email.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)
}

// Storage is a complete backend with a lifecycle.
type Storage interface {
	MappingStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Package cache keeps resolved short codes close to the redirect path.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/MikhailRaia/codekeeper/internal/model"
)

// ErrMiss is returned when the code is not cached.
var ErrMiss = errors.New("cache: key not found")

// invalidationWindow bounds how long a deleted code refuses new fills. It
// must outlive any store read that started before the deletion.
const invalidationWindow = 30 * time.Second

// Cache stores mappings by short code. Implementations must be safe for
// concurrent use.
//
// Set only fills an absent code. Delete leaves a tombstone, so a Set that
// raced the Delete with a record read earlier is dropped until the tombstone
// expires.
type Cache interface {
	Get(ctx context.Context, code string) (model.URLMapping, error)
	Set(ctx context.Context, m model.URLMapping) error
	Delete(ctx context.Context, codes ...string) error
}

func tombstoneTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < invalidationWindow {
		return ttl
	}
	return invalidationWindow
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (model.URLMapping, error) {
	return model.URLMapping{}, ErrMiss
}

func (Nop) Set(context.Context, model.URLMapping) error { return nil }

func (Nop) Delete(context.Context, ...string) error { return nil }

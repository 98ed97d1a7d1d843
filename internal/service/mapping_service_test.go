package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailRaia/codekeeper/internal/cache"
	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
	"github.com/MikhailRaia/codekeeper/internal/storage/memory"
	"github.com/MikhailRaia/codekeeper/internal/validation"
)

type mockMappingStore struct {
	insertFunc        func(ctx context.Context, m model.URLMapping) (model.URLMapping, error)
	findByCodeFunc    func(ctx context.Context, code string) (model.URLMapping, error)
	findByIDFunc      func(ctx context.Context, id string) (model.URLMapping, error)
	listByOwnerFunc   func(ctx context.Context, ownerID string) ([]model.URLMapping, error)
	updateIfOwnerFunc func(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error)
	deleteIfOwnerFunc func(ctx context.Context, id, ownerID string) (bool, error)
}

func (m *mockMappingStore) Insert(ctx context.Context, mapping model.URLMapping) (model.URLMapping, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, mapping)
	}
	return mapping, nil
}

func (m *mockMappingStore) FindByCode(ctx context.Context, code string) (model.URLMapping, error) {
	if m.findByCodeFunc != nil {
		return m.findByCodeFunc(ctx, code)
	}
	return model.URLMapping{}, storage.ErrNotFound
}

func (m *mockMappingStore) FindByID(ctx context.Context, id string) (model.URLMapping, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return model.URLMapping{}, storage.ErrNotFound
}

func (m *mockMappingStore) ListByOwner(ctx context.Context, ownerID string) ([]model.URLMapping, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return []model.URLMapping{}, nil
}

func (m *mockMappingStore) UpdateIfOwner(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error) {
	if m.updateIfOwnerFunc != nil {
		return m.updateIfOwnerFunc(ctx, id, ownerID, patch)
	}
	return model.URLMapping{}, storage.ErrNotFound
}

func (m *mockMappingStore) DeleteIfOwner(ctx context.Context, id, ownerID string) (bool, error) {
	if m.deleteIfOwnerFunc != nil {
		return m.deleteIfOwnerFunc(ctx, id, ownerID)
	}
	return false, nil
}

// countingStore records how often the store is hit on the resolve path.
type countingStore struct {
	storage.MappingStore
	mu    sync.Mutex
	finds int
}

func (c *countingStore) FindByCode(ctx context.Context, code string) (model.URLMapping, error) {
	c.mu.Lock()
	c.finds++
	c.mu.Unlock()
	return c.MappingStore.FindByCode(ctx, code)
}

// gatedStore pauses one FindByCode between reading the record and
// returning it, once armed.
type gatedStore struct {
	storage.MappingStore
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newGatedStore(inner storage.MappingStore) *gatedStore {
	return &gatedStore{
		MappingStore: inner,
		read:         make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedStore) FindByCode(ctx context.Context, code string) (model.URLMapping, error) {
	m, err := g.MappingStore.FindByCode(ctx, code)
	if g.armed.CompareAndSwap(true, false) {
		g.read <- struct{}{}
		<-g.release
	}
	return m, err
}

func newTestService(store storage.MappingStore, c cache.Cache) *MappingService {
	s := NewMappingService(store, c)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestMappingService_Shorten(t *testing.T) {
	storeErr := errors.New("connection refused")

	tests := []struct {
		name      string
		input     ShortenInput
		insertErr error
		wantCode  string
		wantErr   error
		wantValid bool
	}{
		{
			name:     "explicit code",
			input:    ShortenInput{URL: "https://a.com", Code: "abc1"},
			wantCode: "abc1",
		},
		{
			name:     "generated code",
			input:    ShortenInput{URL: "https://a.com"},
			wantCode: "gen123",
		},
		{
			name:      "code taken",
			input:     ShortenInput{URL: "https://a.com", Code: "abc1"},
			insertErr: storage.ErrCodeTaken,
			wantErr:   ErrCodeTaken,
		},
		{
			name:      "storage failure",
			input:     ShortenInput{URL: "https://a.com", Code: "abc1"},
			insertErr: storeErr,
			wantErr:   storeErr,
		},
		{
			name:      "invalid url",
			input:     ShortenInput{URL: "not a url"},
			wantValid: true,
		},
		{
			name:      "reserved code",
			input:     ShortenInput{URL: "https://a.com", Code: "codes"},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inserted []model.URLMapping
			store := &mockMappingStore{
				insertFunc: func(_ context.Context, m model.URLMapping) (model.URLMapping, error) {
					if tt.insertErr != nil {
						return model.URLMapping{}, tt.insertErr
					}
					inserted = append(inserted, m)
					return m, nil
				},
			}

			s := newTestService(store, nil)
			s.generate = func(length int) (string, error) {
				assert.Equal(t, 6, length)
				return "gen123", nil
			}

			got, err := s.Shorten(context.Background(), "U1", tt.input)

			if tt.wantValid {
				var verr *validation.Error
				assert.ErrorAs(t, err, &verr)
				assert.Empty(t, inserted)
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, got.ShortCode)
			assert.Equal(t, tt.input.URL, got.TargetURL)
			assert.Equal(t, "U1", got.OwnerID)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, got.CreatedAt, got.UpdatedAt)
			require.Len(t, inserted, 1)
		})
	}
}

func TestMappingService_ShortenGeneratorFailure(t *testing.T) {
	s := newTestService(&mockMappingStore{}, nil)
	s.generate = func(int) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := s.Shorten(context.Background(), "U1", ShortenInput{URL: "https://a.com"})
	assert.Error(t, err)
}

func TestMappingService_ShortenThenResolve(t *testing.T) {
	s := newTestService(memory.NewStorage(), nil)
	ctx := context.Background()

	m, err := s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "abc1"})
	require.NoError(t, err)
	assert.Equal(t, "abc1", m.ShortCode)
	assert.Equal(t, "https://a.com", m.TargetURL)

	target, err := s.Resolve(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", target)

	_, err = s.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMappingService_ConcurrentShortenSameCode(t *testing.T) {
	store := memory.NewStorage()
	s := newTestService(store, nil)
	ctx := context.Background()

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "race"})
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrCodeTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, taken)

	mappings, _ := store.Stats()
	assert.Equal(t, 1, mappings)
}

func TestMappingService_ResolveUsesCache(t *testing.T) {
	store := &countingStore{MappingStore: memory.NewStorage()}
	s := newTestService(store, cache.NewMemory(time.Minute))
	ctx := context.Background()

	_, err := s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "hot"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		target, err := s.Resolve(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, "https://a.com", target)
	}
	assert.Equal(t, 1, store.finds)
}

func TestMappingService_ResolveRacingMutation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(s *MappingService, m model.URLMapping) error
		wantTarget string
		wantErr    error
	}{
		{
			name: "delete",
			mutate: func(s *MappingService, m model.URLMapping) error {
				return s.Delete(context.Background(), m.ID, "U1")
			},
			wantErr: ErrNotFound,
		},
		{
			name: "update target",
			mutate: func(s *MappingService, m model.URLMapping) error {
				_, err := s.Update(context.Background(), m.ID, "U1", UpdateInput{URL: "https://b.com"})
				return err
			},
			wantTarget: "https://b.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newGatedStore(memory.NewStorage())
			s := newTestService(store, cache.NewMemory(time.Minute))

			m, err := s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "race"})
			require.NoError(t, err)

			store.armed.Store(true)
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = s.Resolve(ctx, "race")
			}()

			<-store.read
			require.NoError(t, tt.mutate(s, m))
			close(store.release)
			<-done

			target, err := s.Resolve(ctx, "race")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)
		})
	}
}

func TestMappingService_ListMine(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &mockMappingStore{
		listByOwnerFunc: func(_ context.Context, ownerID string) ([]model.URLMapping, error) {
			// A backend returning a stray row must not leak it.
			return []model.URLMapping{
				{ID: "2", ShortCode: "b", OwnerID: ownerID, CreatedAt: base.Add(time.Hour)},
				{ID: "x", ShortCode: "x", OwnerID: "U2", CreatedAt: base},
				{ID: "1", ShortCode: "a", OwnerID: ownerID, CreatedAt: base},
			}, nil
		},
	}

	got, err := newTestService(store, nil).ListMine(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestMappingService_ListMineOnlyOwned(t *testing.T) {
	s := newTestService(memory.NewStorage(), nil)
	ctx := context.Background()

	for i, owner := range []string{"U1", "U2", "U1", "U3"} {
		_, err := s.Shorten(ctx, owner, ShortenInput{URL: "https://a.com", Code: "c" + string(rune('a'+i))})
		require.NoError(t, err)
	}

	got, err := s.ListMine(ctx, "U1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, "U1", m.OwnerID)
	}

	empty, err := s.ListMine(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMappingService_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*MappingService, model.URLMapping) {
		s := newTestService(memory.NewStorage(), cache.NewMemory(time.Minute))
		m, err := s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "mine"})
		require.NoError(t, err)
		_, err = s.Shorten(ctx, "U2", ShortenInput{URL: "https://b.com", Code: "theirs"})
		require.NoError(t, err)
		return s, m
	}

	t.Run("owner changes url and code", func(t *testing.T) {
		s, m := setup(t)
		s.now = func() time.Time { return m.UpdatedAt.Add(time.Minute) }

		got, err := s.Update(ctx, m.ID, "U1", UpdateInput{URL: "https://new.com", Code: "fresh"})
		require.NoError(t, err)
		assert.Equal(t, "fresh", got.ShortCode)
		assert.Equal(t, "https://new.com", got.TargetURL)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, "U1", got.OwnerID)
		assert.True(t, got.UpdatedAt.After(m.UpdatedAt))

		target, err := s.Resolve(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "https://new.com", target)
	})

	t.Run("old code stops resolving after change", func(t *testing.T) {
		s, m := setup(t)
		_, err := s.Resolve(ctx, "mine")
		require.NoError(t, err)

		_, err = s.Update(ctx, m.ID, "U1", UpdateInput{Code: "moved"})
		require.NoError(t, err)

		_, err = s.Resolve(ctx, "mine")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("same code is accepted", func(t *testing.T) {
		s, m := setup(t)
		got, err := s.Update(ctx, m.ID, "U1", UpdateInput{Code: "mine", URL: "https://c.com"})
		require.NoError(t, err)
		assert.Equal(t, "mine", got.ShortCode)
		assert.Equal(t, "https://c.com", got.TargetURL)
	})

	t.Run("code owned by another user", func(t *testing.T) {
		s, m := setup(t)
		_, err := s.Update(ctx, m.ID, "U1", UpdateInput{Code: "theirs"})
		assert.ErrorIs(t, err, ErrCodeTaken)

		target, err := s.Resolve(ctx, "mine")
		require.NoError(t, err)
		assert.Equal(t, "https://a.com", target)
	})

	t.Run("non owner", func(t *testing.T) {
		s, m := setup(t)
		_, err := s.Update(ctx, m.ID, "U2", UpdateInput{URL: "https://evil.com"})
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

		target, err := s.Resolve(ctx, "mine")
		require.NoError(t, err)
		assert.Equal(t, "https://a.com", target)
	})

	t.Run("missing mapping", func(t *testing.T) {
		s, _ := setup(t)
		_, err := s.Update(ctx, "does-not-exist", "U1", UpdateInput{URL: "https://x.com"})
		assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
	})

	t.Run("empty patch", func(t *testing.T) {
		s, m := setup(t)
		_, err := s.Update(ctx, m.ID, "U1", UpdateInput{})
		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "url")
	})
}

func TestMappingService_UpdateStoreErrors(t *testing.T) {
	existing := model.URLMapping{ID: "id1", ShortCode: "abc", OwnerID: "U1"}
	storeErr := errors.New("disk full")

	tests := []struct {
		name      string
		updateErr error
		wantErr   error
	}{
		{name: "vanished between find and update", updateErr: storage.ErrNotFound, wantErr: ErrNotFoundOrUnauthorized},
		{name: "code taken by a concurrent writer", updateErr: storage.ErrCodeTaken, wantErr: ErrCodeTaken},
		{name: "storage failure", updateErr: storeErr, wantErr: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMappingStore{
				findByIDFunc: func(context.Context, string) (model.URLMapping, error) {
					return existing, nil
				},
				updateIfOwnerFunc: func(context.Context, string, string, model.MappingPatch) (model.URLMapping, error) {
					return model.URLMapping{}, tt.updateErr
				},
			}

			_, err := newTestService(store, nil).Update(context.Background(), "id1", "U1", UpdateInput{Code: "other"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMappingService_UpdateDropsUnchangedCode(t *testing.T) {
	existing := model.URLMapping{ID: "id1", ShortCode: "abc", TargetURL: "https://a.com", OwnerID: "U1"}
	var got model.MappingPatch

	store := &mockMappingStore{
		findByIDFunc: func(context.Context, string) (model.URLMapping, error) {
			return existing, nil
		},
		updateIfOwnerFunc: func(_ context.Context, _, _ string, patch model.MappingPatch) (model.URLMapping, error) {
			got = patch
			return patch.Apply(existing), nil
		},
	}

	_, err := newTestService(store, nil).Update(context.Background(), "id1", "U1", UpdateInput{Code: "abc", URL: "https://b.com"})
	require.NoError(t, err)
	assert.Nil(t, got.ShortCode)
	require.NotNil(t, got.TargetURL)
	assert.Equal(t, "https://b.com", *got.TargetURL)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMappingService_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestService(memory.NewStorage(), cache.NewMemory(time.Minute))

	m, err := s.Shorten(ctx, "U1", ShortenInput{URL: "https://a.com", Code: "bye"})
	require.NoError(t, err)
	_, err = s.Resolve(ctx, "bye")
	require.NoError(t, err)

	err = s.Delete(ctx, m.ID, "U2")
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
	_, err = s.Resolve(ctx, "bye")
	require.NoError(t, err, "record must survive a non-owner delete")

	require.NoError(t, s.Delete(ctx, m.ID, "U1"))
	_, err = s.Resolve(ctx, "bye")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, m.ID, "U1")
	assert.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
}

func TestMappingService_DeleteStoreErrors(t *testing.T) {
	existing := model.URLMapping{ID: "id1", ShortCode: "abc", OwnerID: "U1"}
	storeErr := errors.New("timeout")

	tests := []struct {
		name    string
		deleted bool
		err     error
		wantErr error
	}{
		{name: "lost race", deleted: false, wantErr: ErrNotFoundOrUnauthorized},
		{name: "storage failure", err: storeErr, wantErr: storeErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockMappingStore{
				findByIDFunc: func(context.Context, string) (model.URLMapping, error) {
					return existing, nil
				},
				deleteIfOwnerFunc: func(context.Context, string, string) (bool, error) {
					return tt.deleted, tt.err
				},
			}

			err := newTestService(store, nil).Delete(context.Background(), "id1", "U1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

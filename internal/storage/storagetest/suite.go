// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
)

// Factory returns an empty backend. The backend is closed by the suite.
type Factory func(t *testing.T) storage.Storage

// Run executes the conformance suite against backends built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"InsertAndFind", testInsertAndFind},
		{"InsertDuplicateCode", testInsertDuplicateCode},
		{"CodesCaseSensitive", testCodesCaseSensitive},
		{"ConcurrentInsertSameCode", testConcurrentInsertSameCode},
		{"FindMissing", testFindMissing},
		{"ListByOwner", testListByOwner},
		{"UpdateIfOwner", testUpdateIfOwner},
		{"UpdateByNonOwner", testUpdateByNonOwner},
		{"UpdateToTakenCode", testUpdateToTakenCode},
		{"UpdateKeepsOwnCode", testUpdateKeepsOwnCode},
		{"DeleteIfOwner", testDeleteIfOwner},
		{"DeleteByNonOwner", testDeleteByNonOwner},
		{"Users", testUsers},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStorage(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// NewMapping builds a mapping with a fresh id and second-precision timestamps.
func NewMapping(code, targetURL, ownerID string) model.URLMapping {
	now := time.Now().UTC().Truncate(time.Second)
	return model.URLMapping{
		ID:        uuid.NewString(),
		ShortCode: code,
		TargetURL: targetURL,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewUser builds a user with a fresh id.
func NewUser(email string) model.User {
	return model.User{
		ID:           uuid.NewString(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

// AssertMapping compares two mappings field by field, tolerating the
// timestamp round-trips of SQL backends.
func AssertMapping(t *testing.T, want, got model.URLMapping) {
	t.Helper()

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.ShortCode, got.ShortCode)
	assert.Equal(t, want.TargetURL, got.TargetURL)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Second)
	assert.WithinDuration(t, want.UpdatedAt, got.UpdatedAt, time.Second)
}

func testInsertAndFind(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("abc1", "https://a.com", "u1")

	stored, err := s.Insert(ctx, m)
	require.NoError(t, err)
	AssertMapping(t, m, stored)

	byCode, err := s.FindByCode(ctx, "abc1")
	require.NoError(t, err)
	AssertMapping(t, m, byCode)

	byID, err := s.FindByID(ctx, m.ID)
	require.NoError(t, err)
	AssertMapping(t, m, byID)
}

func testInsertDuplicateCode(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.Insert(ctx, NewMapping("dup", "https://a.com", "u1"))
	require.NoError(t, err)

	second := NewMapping("dup", "https://b.com", "u2")
	_, err = s.Insert(ctx, second)
	assert.ErrorIs(t, err, storage.ErrCodeTaken)

	_, err = s.FindByID(ctx, second.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.FindByCode(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", got.TargetURL)
}

func testCodesCaseSensitive(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.Insert(ctx, NewMapping("abc", "https://lower.com", "u1"))
	require.NoError(t, err)
	_, err = s.Insert(ctx, NewMapping("ABC", "https://upper.com", "u1"))
	require.NoError(t, err)

	lower, err := s.FindByCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://lower.com", lower.TargetURL)

	upper, err := s.FindByCode(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "https://upper.com", upper.TargetURL)

	_, err = s.FindByCode(ctx, "Abc")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testConcurrentInsertSameCode(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const attempts = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		taken     int
		others    []error
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := NewMapping("race", fmt.Sprintf("https://example.com/%d", i), "racer")
			_, err := s.Insert(ctx, m)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, storage.ErrCodeTaken):
				taken++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, taken)

	list, err := s.ListByOwner(ctx, "racer")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testFindMissing(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.FindByCode(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testListByOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, NewMapping(fmt.Sprintf("u1c%d", i), "https://a.com", "u1"))
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, NewMapping(fmt.Sprintf("u2c%d", i), "https://b.com", "u2"))
		require.NoError(t, err)
	}

	list, err := s.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, m := range list {
		assert.Equal(t, "u1", m.OwnerID)
	}

	empty, err := s.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testUpdateIfOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("old1", "https://a.com", "u1")
	_, err := s.Insert(ctx, m)
	require.NoError(t, err)

	newURL := "https://b.com"
	newCode := "new1"
	later := m.UpdatedAt.Add(time.Minute)

	updated, err := s.UpdateIfOwner(ctx, m.ID, "u1", model.MappingPatch{
		TargetURL: &newURL,
		ShortCode: &newCode,
		UpdatedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, m.ID, updated.ID)
	assert.Equal(t, "u1", updated.OwnerID)
	assert.Equal(t, newURL, updated.TargetURL)
	assert.Equal(t, newCode, updated.ShortCode)
	assert.WithinDuration(t, m.CreatedAt, updated.CreatedAt, time.Second)
	assert.WithinDuration(t, later, updated.UpdatedAt, time.Second)

	_, err = s.FindByCode(ctx, "old1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.FindByCode(ctx, "new1")
	require.NoError(t, err)
	assert.Equal(t, newURL, got.TargetURL)

	_, err = s.UpdateIfOwner(ctx, uuid.NewString(), "u1", model.MappingPatch{TargetURL: &newURL, UpdatedAt: later})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateByNonOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("mine", "https://a.com", "u1")
	_, err := s.Insert(ctx, m)
	require.NoError(t, err)

	hijack := "https://evil.com"
	_, err = s.UpdateIfOwner(ctx, m.ID, "u2", model.MappingPatch{TargetURL: &hijack, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.FindByID(ctx, m.ID)
	require.NoError(t, err)
	AssertMapping(t, m, got)
}

func testUpdateToTakenCode(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	first := NewMapping("abc1", "https://a.com", "u2")
	second := NewMapping("abc2", "https://b.com", "u1")
	_, err := s.Insert(ctx, first)
	require.NoError(t, err)
	_, err = s.Insert(ctx, second)
	require.NoError(t, err)

	taken := "abc1"
	_, err = s.UpdateIfOwner(ctx, second.ID, "u1", model.MappingPatch{ShortCode: &taken, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, storage.ErrCodeTaken)

	got, err := s.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc2", got.ShortCode)

	owner, err := s.FindByCode(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, owner.ID)
}

func testUpdateKeepsOwnCode(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("keep", "https://a.com", "u1")
	_, err := s.Insert(ctx, m)
	require.NoError(t, err)

	same := "keep"
	newURL := "https://b.com"
	updated, err := s.UpdateIfOwner(ctx, m.ID, "u1", model.MappingPatch{
		ShortCode: &same,
		TargetURL: &newURL,
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "keep", updated.ShortCode)
	assert.Equal(t, newURL, updated.TargetURL)
}

func testDeleteIfOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("gone", "https://a.com", "u1")
	_, err := s.Insert(ctx, m)
	require.NoError(t, err)

	deleted, err := s.DeleteIfOwner(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.FindByCode(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	deleted, err = s.DeleteIfOwner(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.Insert(ctx, NewMapping("gone", "https://b.com", "u2"))
	assert.NoError(t, err, "a deleted code can be reused")
}

func testDeleteByNonOwner(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	m := NewMapping("stay", "https://a.com", "u1")
	_, err := s.Insert(ctx, m)
	require.NoError(t, err)

	deleted, err := s.DeleteIfOwner(ctx, m.ID, "u2")
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := s.FindByCode(ctx, "stay")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
}

func testUsers(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := NewUser("ada@example.com")
	u.Name = "Ada"

	created, err := s.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, u.ID, created.ID)

	_, err = s.CreateUser(ctx, NewUser("ada@example.com"))
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	byEmail, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)
	assert.Equal(t, "ada@example.com", byID.Email)

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.FindUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testPing(t *testing.T, s storage.Storage) {
	assert.NoError(t, s.Ping(context.Background()))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/codekeeper/internal/cache"
	"github.com/MikhailRaia/codekeeper/internal/generator"
	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
	"github.com/MikhailRaia/codekeeper/internal/validation"
)

var (
	// ErrCodeTaken is returned when the short code is used by any mapping.
	ErrCodeTaken = errors.New("short code already in use")
	// ErrNotFound is returned when a short code does not resolve.
	ErrNotFound = errors.New("short code not found")
	// ErrNotFoundOrUnauthorized is returned when a mapping does not exist or
	// belongs to someone else. The two cases are not distinguished.
	ErrNotFoundOrUnauthorized = errors.New("mapping not found")
)

// ShortenInput is the payload of a shorten request.
type ShortenInput struct {
	URL  string `json:"url" validate:"required,http_url,max=2048"`
	Code string `json:"code,omitempty" validate:"omitempty,shortcode"`
}

// UpdateInput is the payload of an update request. Empty fields are left
// unchanged, but at least one must be set.
type UpdateInput struct {
	URL  string `json:"url,omitempty" validate:"required_without=Code,omitempty,http_url,max=2048"`
	Code string `json:"code,omitempty" validate:"omitempty,shortcode"`
}

// MappingService creates, resolves and manages short codes.
type MappingService struct {
	store    storage.MappingStore
	cache    cache.Cache
	now      func() time.Time
	generate func(length int) (string, error)
}

// NewMappingService constructs a MappingService. A nil cache disables caching.
func NewMappingService(store storage.MappingStore, c cache.Cache) *MappingService {
	if c == nil {
		c = cache.Nop{}
	}
	return &MappingService{
		store:    store,
		cache:    c,
		now:      func() time.Time { return time.Now().UTC() },
		generate: generator.GenerateCode,
	}
}

// Shorten stores a new mapping owned by ownerID. An empty code is replaced
// by a generated one; a collision is reported, never retried.
func (s *MappingService) Shorten(ctx context.Context, ownerID string, in ShortenInput) (model.URLMapping, error) {
	if err := validation.Validate(in); err != nil {
		return model.URLMapping{}, err
	}

	code := in.Code
	if code == "" {
		generated, err := s.generate(generator.DefaultCodeLength)
		if err != nil {
			return model.URLMapping{}, fmt.Errorf("generate code: %w", err)
		}
		code = generated
	}

	now := s.now()
	m := model.URLMapping{
		ID:        uuid.NewString(),
		ShortCode: code,
		TargetURL: in.URL,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.store.Insert(ctx, m)
	if err != nil {
		if errors.Is(err, storage.ErrCodeTaken) {
			return model.URLMapping{}, ErrCodeTaken
		}
		return model.URLMapping{}, fmt.Errorf("insert mapping: %w", err)
	}

	log.Debug().
		Str("id", saved.ID).
		Str("code", saved.ShortCode).
		Str("owner", ownerID).
		Msg("Mapping created")

	return saved, nil
}

// Resolve returns the target URL of code.
func (s *MappingService) Resolve(ctx context.Context, code string) (string, error) {
	cached, err := s.cache.Get(ctx, code)
	if err == nil {
		return cached.TargetURL, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("code", code).Msg("Cache lookup failed")
	}

	m, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find mapping: %w", err)
	}

	if err := s.cache.Set(ctx, m); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("Cache store failed")
	}

	return m.TargetURL, nil
}

// ListMine returns the mappings owned by ownerID, oldest first.
func (s *MappingService) ListMine(ctx context.Context, ownerID string) ([]model.URLMapping, error) {
	all, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}

	owned := make([]model.URLMapping, 0, len(all))
	for _, m := range all {
		if m.OwnedBy(ownerID) {
			owned = append(owned, m)
		}
	}

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.Before(owned[j].CreatedAt)
	})
	return owned, nil
}

// Update changes the target URL and/or short code of a mapping owned by
// ownerID. The new code must be unused by every other mapping.
func (s *MappingService) Update(ctx context.Context, id, ownerID string, in UpdateInput) (model.URLMapping, error) {
	if err := validation.Validate(in); err != nil {
		return model.URLMapping{}, err
	}

	existing, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return model.URLMapping{}, err
	}

	patch := model.MappingPatch{UpdatedAt: s.now()}
	if in.URL != "" {
		patch.TargetURL = &in.URL
	}
	if in.Code != "" && in.Code != existing.ShortCode {
		patch.ShortCode = &in.Code
	}

	updated, err := s.store.UpdateIfOwner(ctx, id, ownerID, patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return model.URLMapping{}, ErrNotFoundOrUnauthorized
		case errors.Is(err, storage.ErrCodeTaken):
			return model.URLMapping{}, ErrCodeTaken
		default:
			return model.URLMapping{}, fmt.Errorf("update mapping: %w", err)
		}
	}

	s.evict(ctx, existing.ShortCode, updated.ShortCode)

	log.Debug().
		Str("id", id).
		Str("code", updated.ShortCode).
		Msg("Mapping updated")

	return updated, nil
}

// Delete removes a mapping owned by ownerID.
func (s *MappingService) Delete(ctx context.Context, id, ownerID string) error {
	existing, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteIfOwner(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if !deleted {
		return ErrNotFoundOrUnauthorized
	}

	s.evict(ctx, existing.ShortCode)

	log.Debug().Str("id", id).Msg("Mapping deleted")
	return nil
}

func (s *MappingService) owned(ctx context.Context, id, ownerID string) (model.URLMapping, error) {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.URLMapping{}, ErrNotFoundOrUnauthorized
		}
		return model.URLMapping{}, fmt.Errorf("find mapping: %w", err)
	}

	if !m.OwnedBy(ownerID) {
		return model.URLMapping{}, ErrNotFoundOrUnauthorized
	}
	return m, nil
}

func (s *MappingService) evict(ctx context.Context, codes ...string) {
	if err := s.cache.Delete(ctx, codes...); err != nil {
		log.Warn().Err(err).Strs("codes", codes).Msg("Cache eviction failed")
	}
}

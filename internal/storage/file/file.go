package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage/memory"
)

const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
	opUser   = "user"
)

// record is one line of the journal.
type record struct {
	Op      string            `json:"op"`
	Mapping *model.URLMapping `json:"mapping,omitempty"`
	User    *userRecord       `json:"user,omitempty"`
}

// userRecord keeps the password hash, which model.User never serializes.
type userRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Storage implements storage.Storage on top of the in-memory store and
// persists every mutation to an append-only JSONL journal.
type Storage struct {
	*memory.Storage
	filePath string
	// writeMu serializes mutations so journal order matches apply order.
	writeMu sync.Mutex
}

// NewStorage creates a file-backed storage at the provided path and
// replays the existing journal.
func NewStorage(filePath string) (*Storage, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Storage{
		Storage:  memory.NewStorage(),
		filePath: filePath,
	}

	if err := s.loadFromFile(); err != nil {
		return nil, err
	}

	return s, nil
}

// Insert stores m and appends it to the journal.
func (s *Storage) Insert(ctx context.Context, m model.URLMapping) (model.URLMapping, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	saved, err := s.Storage.Insert(ctx, m)
	if err != nil {
		return model.URLMapping{}, err
	}

	if err := s.saveRecordToFile(record{Op: opInsert, Mapping: &saved}); err != nil {
		if _, rbErr := s.Storage.DeleteIfOwner(ctx, saved.ID, saved.OwnerID); rbErr != nil {
			logRollbackFailure(rbErr, opInsert, saved.ID)
		}
		return model.URLMapping{}, err
	}

	return saved, nil
}

// UpdateIfOwner patches the mapping and journals its new state.
func (s *Storage) UpdateIfOwner(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	before, err := s.Storage.FindByID(ctx, id)
	if err != nil {
		return model.URLMapping{}, err
	}

	updated, err := s.Storage.UpdateIfOwner(ctx, id, ownerID, patch)
	if err != nil {
		return model.URLMapping{}, err
	}

	if err := s.saveRecordToFile(record{Op: opUpdate, Mapping: &updated}); err != nil {
		if _, rbErr := s.Storage.UpdateIfOwner(ctx, id, ownerID, restorePatch(before)); rbErr != nil {
			logRollbackFailure(rbErr, opUpdate, id)
		}
		return model.URLMapping{}, err
	}

	return updated, nil
}

// DeleteIfOwner removes the mapping and journals the removal.
func (s *Storage) DeleteIfOwner(ctx context.Context, id, ownerID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.Storage.FindByID(ctx, id)
	if err != nil || !existing.OwnedBy(ownerID) {
		return false, nil
	}

	if err := s.saveRecordToFile(record{Op: opDelete, Mapping: &existing}); err != nil {
		return false, err
	}

	return s.Storage.DeleteIfOwner(ctx, id, ownerID)
}

// CreateUser stores u and appends it to the journal.
func (s *Storage) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.Storage.CreateUser(ctx, u); err != nil {
		return model.User{}, err
	}

	rec := userRecord{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.saveRecordToFile(record{Op: opUser, User: &rec}); err != nil {
		if !s.Storage.DeleteUser(ctx, u.ID) {
			logRollbackFailure(errors.New("user vanished before rollback"), opUser, u.ID)
		}
		return model.User{}, err
	}

	return u, nil
}

// Ping checks that the journal file is still reachable.
func (s *Storage) Ping(context.Context) error {
	if _, err := os.Stat(s.filePath); err != nil {
		return fmt.Errorf("journal unavailable: %w", err)
	}
	return nil
}

func (s *Storage) loadFromFile() error {
	file, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(file)
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record on line %d: %w", line, err)
		}

		if err := s.replay(ctx, rec); err != nil {
			return fmt.Errorf("failed to replay record on line %d: %w", line, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return nil
}

func (s *Storage) replay(ctx context.Context, rec record) error {
	switch rec.Op {
	case opInsert:
		if rec.Mapping == nil {
			return fmt.Errorf("insert without mapping")
		}
		_, err := s.Storage.Insert(ctx, *rec.Mapping)
		return err
	case opUpdate:
		if rec.Mapping == nil {
			return fmt.Errorf("update without mapping")
		}
		m := *rec.Mapping
		_, err := s.Storage.UpdateIfOwner(ctx, m.ID, m.OwnerID, restorePatch(m))
		return err
	case opDelete:
		if rec.Mapping == nil {
			return fmt.Errorf("delete without mapping")
		}
		_, err := s.Storage.DeleteIfOwner(ctx, rec.Mapping.ID, rec.Mapping.OwnerID)
		return err
	case opUser:
		if rec.User == nil {
			return fmt.Errorf("user record without user")
		}
		_, err := s.Storage.CreateUser(ctx, model.User{
			ID:           rec.User.ID,
			Name:         rec.User.Name,
			Email:        rec.User.Email,
			PasswordHash: rec.User.PasswordHash,
			CreatedAt:    rec.User.CreatedAt,
		})
		return err
	default:
		return fmt.Errorf("unknown operation %q", rec.Op)
	}
}

func (s *Storage) saveRecordToFile(rec record) error {
	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for writing: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

// logRollbackFailure reports a compensating change that did not apply, which
// leaves memory ahead of the journal until restart.
func logRollbackFailure(err error, op, id string) {
	log.Error().
		Err(err).
		Str("op", op).
		Str("id", id).
		Msg("Journal rollback failed, memory and journal diverge")
}

// restorePatch builds a patch that sets every mutable field of m.
func restorePatch(m model.URLMapping) model.MappingPatch {
	target := m.TargetURL
	code := m.ShortCode
	return model.MappingPatch{
		TargetURL: &target,
		ShortCode: &code,
		UpdatedAt: m.UpdatedAt,
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
)

const (
	mappingCodeConstraint = "url_mappings_short_code_key"
	userEmailConstraint   = "users_email_key"
)

// Storage implements storage.Storage on PostgreSQL through a pgx pool.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage connects to dsn and creates the schema when it is missing.
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is empty")
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{pool: pool}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			CONSTRAINT ` + userEmailConstraint + ` UNIQUE (email)
		)`,
		`CREATE TABLE IF NOT EXISTS url_mappings (
			id TEXT PRIMARY KEY,
			short_code VARCHAR(64) NOT NULL,
			target_url TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			CONSTRAINT ` + mappingCodeConstraint + ` UNIQUE (short_code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_mappings_owner_id ON url_mappings(owner_id)`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const mappingColumns = `id, short_code, target_url, owner_id, created_at, updated_at`

// Insert stores m. The unique constraint on short_code decides races.
func (s *Storage) Insert(ctx context.Context, m model.URLMapping) (model.URLMapping, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO url_mappings (`+mappingColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ShortCode, m.TargetURL, m.OwnerID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return model.URLMapping{}, translateError(err)
	}
	return m, nil
}

func (s *Storage) FindByCode(ctx context.Context, code string) (model.URLMapping, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM url_mappings WHERE short_code = $1`, code)
	return scanMapping(row)
}

func (s *Storage) FindByID(ctx context.Context, id string) (model.URLMapping, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+mappingColumns+` FROM url_mappings WHERE id = $1`, id)
	return scanMapping(row)
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID string) ([]model.URLMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+mappingColumns+` FROM url_mappings WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error querying mappings: %w", err)
	}
	defer rows.Close()

	result := make([]model.URLMapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}
	return result, nil
}

// UpdateIfOwner applies patch in a single conditional statement.
func (s *Storage) UpdateIfOwner(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE url_mappings
		SET target_url = COALESCE($3, target_url),
			short_code = COALESCE($4, short_code),
			updated_at = $5
		WHERE id = $1 AND owner_id = $2
		RETURNING `+mappingColumns,
		id, ownerID, patch.TargetURL, patch.ShortCode, patch.UpdatedAt)
	return scanMapping(row)
}

// DeleteIfOwner removes the mapping in a single conditional statement.
func (s *Storage) DeleteIfOwner(ctx context.Context, id, ownerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM url_mappings WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("error deleting mapping: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = strings.ToLower(u.Email)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return model.User{}, translateError(err)
	}
	return u, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(email))
	return scanUser(row)
}

func (s *Storage) FindUserByID(ctx context.Context, id string) (model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanMapping(row pgx.Row) (model.URLMapping, error) {
	var m model.URLMapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.URLMapping{}, storage.ErrNotFound
		}
		return model.URLMapping{}, translateError(err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, storage.ErrNotFound
		}
		return model.User{}, fmt.Errorf("error scanning user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// translateError maps unique violations onto the storage sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return fmt.Errorf("database error: %w", err)
	}

	switch pgErr.ConstraintName {
	case userEmailConstraint:
		return storage.ErrEmailTaken
	default:
		return storage.ErrCodeTaken
	}
}

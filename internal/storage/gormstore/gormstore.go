// Package gormstore implements storage.Storage with gorm so the service can
// run on SQLite, MySQL or PostgreSQL through the same code.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/storage"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "gorm-postgres"
)

// ErrUnknownDriver is returned for a driver name gorm cannot serve.
var ErrUnknownDriver = errors.New("unknown database driver")

type mappingRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ShortCode string    `gorm:"size:64;not null;uniqueIndex:idx_url_mappings_short_code"`
	TargetURL string    `gorm:"type:text;not null"`
	OwnerID   string    `gorm:"size:36;not null;index:idx_url_mappings_owner_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (mappingRow) TableName() string { return "url_mappings" }

func (r mappingRow) toModel() model.URLMapping {
	return model.URLMapping{
		ID:        r.ID,
		ShortCode: r.ShortCode,
		TargetURL: r.TargetURL,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type userRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"size:255;not null"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime:false"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// Storage implements storage.Storage on a gorm connection.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens dsn with the named driver and migrates the schema.
// A nil logger silences gorm.
func NewStorage(driver, dsn string, logger gormlogger.Interface) (*Storage, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = gormlogger.Discard
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&userRow{}, &mappingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if ddl := codeCollationDDL(driver); ddl != "" {
		if err := db.Exec(ddl).Error; err != nil {
			return nil, fmt.Errorf("failed to pin short code collation: %w", err)
		}
	}

	return &Storage{db: db}, nil
}

// codeCollationDDL returns the statement making short codes compare
// byte-wise. MySQL's default collations fold case; SQLite and Postgres
// already compare exactly.
func codeCollationDDL(driver string) string {
	if driver != DriverMySQL {
		return ""
	}
	return "ALTER TABLE url_mappings MODIFY short_code VARCHAR(64) " +
		"CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is empty")
	}

	switch driver {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func (s *Storage) Insert(ctx context.Context, m model.URLMapping) (model.URLMapping, error) {
	row := mappingRow{
		ID:        m.ID,
		ShortCode: m.ShortCode,
		TargetURL: m.TargetURL,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.URLMapping{}, storage.ErrCodeTaken
		}
		return model.URLMapping{}, fmt.Errorf("failed to insert mapping: %w", err)
	}
	return m, nil
}

func (s *Storage) FindByCode(ctx context.Context, code string) (model.URLMapping, error) {
	return s.findMapping(s.db.WithContext(ctx), "short_code = ?", code)
}

func (s *Storage) FindByID(ctx context.Context, id string) (model.URLMapping, error) {
	return s.findMapping(s.db.WithContext(ctx), "id = ?", id)
}

func (s *Storage) findMapping(db *gorm.DB, query string, args ...any) (model.URLMapping, error) {
	var row mappingRow
	if err := db.Where(query, args...).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.URLMapping{}, storage.ErrNotFound
		}
		return model.URLMapping{}, fmt.Errorf("failed to query mapping: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID string) ([]model.URLMapping, error) {
	var rows []mappingRow
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}

	result := make([]model.URLMapping, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toModel())
	}
	return result, nil
}

// UpdateIfOwner loads the owned row and writes the patched columns in one
// transaction. The unique index rejects a code taken in the meantime.
func (s *Storage) UpdateIfOwner(ctx context.Context, id, ownerID string, patch model.MappingPatch) (model.URLMapping, error) {
	var updated model.URLMapping

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findMapping(tx, "id = ? AND owner_id = ?", id, ownerID)
		if err != nil {
			return err
		}

		updated = patch.Apply(existing)
		err = tx.Model(&mappingRow{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"short_code": updated.ShortCode,
				"target_url": updated.TargetURL,
				"updated_at": updated.UpdatedAt,
			}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrCodeTaken
		}
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCodeTaken) {
			return model.URLMapping{}, err
		}
		return model.URLMapping{}, fmt.Errorf("failed to update mapping: %w", err)
	}

	return updated, nil
}

func (s *Storage) DeleteIfOwner(ctx context.Context, id, ownerID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&mappingRow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete mapping: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	u.Email = strings.ToLower(u.Email)
	row := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.User{}, storage.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, "email = ?", strings.ToLower(email))
}

func (s *Storage) FindUserByID(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Storage) findUser(ctx context.Context, query string, args ...any) (model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(query, args...).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, storage.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return row.toModel(), nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

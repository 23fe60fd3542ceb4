package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/chemviz/pkg/db/migrations"
	"github.com/mwantia/chemviz/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newestFirst orders uploads by upload time, ties broken by id.
const newestFirst = "uploaded_at DESC, id DESC"

// SQLiteStore implements UploadStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path     string
	LogLevel logger.LogLevel
}

// ParseLogLevel maps a config value onto a gorm log level, defaulting to silent.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Migrate(ctx)
}

func (s *SQLiteStore) MigrationStatus(ctx context.Context) ([]migrations.MigrationStatus, error) {
	return migrations.NewMigrator(s.db).Status(ctx)
}

func (s *SQLiteStore) Rollback(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Rollback(ctx)
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Upload operations

func ownedBy(owner Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner == nil {
			return db.Where("owner_id IS NULL")
		}
		return db.Where("owner_id = ?", *owner)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, upload *models.Upload) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(upload).Error
	})
}

func (s *SQLiteStore) GetUpload(ctx context.Context, owner Owner, id uint) (*models.Upload, error) {
	var upload models.Upload
	err := s.db.WithContext(ctx).
		Scopes(ownedBy(owner)).
		Where("id = ?", id).
		First(&upload).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

func (s *SQLiteStore) LatestUpload(ctx context.Context, owner Owner) (*models.Upload, error) {
	var upload models.Upload
	err := s.db.WithContext(ctx).
		Scopes(ownedBy(owner)).
		Order(newestFirst).
		First(&upload).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context, owner Owner, limit int) ([]models.Upload, error) {
	var uploads []models.Upload
	query := s.db.WithContext(ctx).
		Scopes(ownedBy(owner)).
		Order(newestFirst)

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&uploads).Error
	return uploads, err
}

func (s *SQLiteStore) ListOwners(ctx context.Context) ([]Owner, error) {
	var ids []sql.NullString
	err := s.db.WithContext(ctx).
		Model(&models.Upload{}).
		Distinct("owner_id").
		Order("owner_id").
		Pluck("owner_id", &ids).Error
	if err != nil {
		return nil, err
	}

	owners := make([]Owner, 0, len(ids))
	for _, id := range ids {
		if !id.Valid {
			owners = append(owners, nil)
			continue
		}
		owner := id.String
		owners = append(owners, &owner)
	}
	return owners, nil
}

func (s *SQLiteStore) DeleteUpload(ctx context.Context, owner Owner, id uint) (*models.Upload, error) {
	var upload models.Upload
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(ownedBy(owner)).Where("id = ?", id).First(&upload).Error; err != nil {
			return err
		}
		return tx.Delete(&upload).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &upload, nil
}

func (s *SQLiteStore) PruneUploads(ctx context.Context, owner Owner, keep int) ([]models.Upload, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	var evicted []models.Upload
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keepIDs []uint
		err := tx.Model(&models.Upload{}).
			Scopes(ownedBy(owner)).
			Order(newestFirst).
			Limit(keep).
			Pluck("id", &keepIDs).Error
		if err != nil {
			return fmt.Errorf("failed to query uploads to keep: %w", err)
		}
		if len(keepIDs) == 0 {
			return nil
		}

		err = tx.Scopes(ownedBy(owner)).
			Where("id NOT IN ?", keepIDs).
			Order(newestFirst).
			Find(&evicted).Error
		if err != nil {
			return fmt.Errorf("failed to query evicted uploads: %w", err)
		}
		if len(evicted) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(evicted))
		for _, upload := range evicted {
			ids = append(ids, upload.ID)
		}
		return tx.Where("id IN ?", ids).Delete(&models.Upload{}).Error
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

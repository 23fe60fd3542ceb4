package store

import (
	"context"
	"errors"

	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/migrations"
)

// ErrNotFound is returned when no upload matches the owner and id.
var ErrNotFound = errors.New("upload not found")

// Owner scopes a query to one principal. A nil Owner selects anonymous uploads.
type Owner = *string

// UploadStore defines the interface for upload metadata operations
type UploadStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	MigrationStatus(ctx context.Context) ([]migrations.MigrationStatus, error)
	Rollback(ctx context.Context) error
	Health(ctx context.Context) error

	// CreateUpload inserts the upload in its own transaction; the returned
	// error is nil only after the commit.
	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUpload(ctx context.Context, owner Owner, id uint) (*models.Upload, error)
	LatestUpload(ctx context.Context, owner Owner) (*models.Upload, error)
	// ListUploads returns the owner's uploads newest first; limit <= 0 lists all.
	ListUploads(ctx context.Context, owner Owner, limit int) ([]models.Upload, error)
	ListOwners(ctx context.Context) ([]Owner, error)
	DeleteUpload(ctx context.Context, owner Owner, id uint) (*models.Upload, error)

	// PruneUploads keeps the owner's newest `keep` uploads, deletes the rest
	// and returns the deleted rows.
	PruneUploads(ctx context.Context, owner Owner, keep int) ([]models.Upload, error)
}

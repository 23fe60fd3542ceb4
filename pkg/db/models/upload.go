package models

import (
	"time"

	"github.com/mwantia/chemviz/pkg/dataset"
	"gorm.io/datatypes"
)

// Upload represents one ingested equipment dataset. Rows are never updated
// in place; deleting one must also delete the blob behind FileRef.
type Upload struct {
	ID      uint    `gorm:"primaryKey"`
	OwnerID *string `gorm:"type:text;index:idx_owner_uploaded,priority:1"`
	Name    string  `gorm:"type:text;not null"`

	// Raw file
	FileName string `gorm:"type:text;not null"`
	FileRef  string `gorm:"type:text;not null;uniqueIndex"`
	FileSize int64  `gorm:"not null"`

	Summary datatypes.JSONType[Summary] `gorm:"not null"`

	UploadedAt time.Time `gorm:"not null;index:idx_owner_uploaded,priority:2"`
}

// Summary is the analytics record stored with every upload.
type Summary struct {
	dataset.AnalyticsSummary
	Validation dataset.ValidationSummary `json:"validation"`
}

// Owner returns the owner id or an empty string for anonymous uploads.
func (u *Upload) Owner() string {
	if u.OwnerID == nil {
		return ""
	}
	return *u.OwnerID
}

// Stats returns the stored summary.
func (u *Upload) Stats() Summary {
	return u.Summary.Data()
}

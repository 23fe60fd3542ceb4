package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/store"
)

const (
	DefaultHistoryLimit = 5
	LatestRowsLimit     = 200
)

// MessageNoValidDatasets is returned with an empty LatestRows result.
const MessageNoValidDatasets = "No valid datasets available."

// HistoryEntry is one line of an owner's upload history.
type HistoryEntry struct {
	ID            uint
	Name          string
	Owner         string
	UploadedAt    time.Time
	Summary       models.Summary
	RowCount      int
	FileSizeBytes int64
	AcceptedRows  int
	RejectedRows  int
}

// History lists the newest uploads of the session owner. A limit below one
// uses DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, sess Session, limit int) ([]HistoryEntry, error) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	uploads, err := s.store.ListUploads(ctx, sess.OwnerRef(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(uploads))
	for i := range uploads {
		upload := &uploads[i]
		summary := upload.Stats()

		rowCount := summary.RowCount
		if rowCount == 0 {
			rowCount = summary.Validation.TotalRows
		}
		fileSize := summary.FileSizeBytes
		if fileSize == 0 {
			fileSize = upload.FileSize
		}

		entries = append(entries, HistoryEntry{
			ID:            upload.ID,
			Name:          upload.Name,
			Owner:         upload.Owner(),
			UploadedAt:    upload.UploadedAt,
			Summary:       summary,
			RowCount:      rowCount,
			FileSizeBytes: fileSize,
			AcceptedRows:  summary.Validation.AcceptedRows,
			RejectedRows:  summary.Validation.RejectedRows,
		})
	}
	return entries, nil
}

// LatestRows holds the leading raw rows of the newest reloadable upload.
// Found is false when no upload of the owner could be reloaded.
type LatestRows struct {
	Found      bool
	ID         uint
	Name       string
	UploadedAt time.Time
	Columns    []string
	Rows       [][]string
	Message    string
}

// LatestRows walks the owner's uploads newest first and returns the first
// LatestRowsLimit rows of the first one whose raw file still loads.
func (s *Service) LatestRows(ctx context.Context, sess Session) (*LatestRows, error) {
	uploads, err := s.store.ListUploads(ctx, sess.OwnerRef(), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	for i := range uploads {
		upload := &uploads[i]
		result := s.loader.Load(ctx, upload)
		if !result.Available() {
			continue
		}

		head := result.Table.Head(LatestRowsLimit)
		return &LatestRows{
			Found:      true,
			ID:         upload.ID,
			Name:       upload.Name,
			UploadedAt: upload.UploadedAt,
			Columns:    head.Columns,
			Rows:       head.Records,
		}, nil
	}

	return &LatestRows{Columns: dataset.RequiredColumns, Message: MessageNoValidDatasets}, nil
}

// Get returns one upload of the session owner.
func (s *Service) Get(ctx context.Context, sess Session, id uint) (*models.Upload, error) {
	return s.store.GetUpload(ctx, sess.OwnerRef(), id)
}

// Delete removes one upload of the session owner and its raw file. A file
// that cannot be removed is logged; the upload is gone either way.
func (s *Service) Delete(ctx context.Context, sess Session, id uint) error {
	upload, err := s.store.DeleteUpload(ctx, sess.OwnerRef(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete upload %d: %w", id, err)
	}

	s.loader.Forget(upload.FileRef)
	if err := s.blobs.Delete(ctx, upload.FileRef); err != nil {
		s.log.Warn("Failed to delete file '%s' of upload %d: %v", upload.FileRef, upload.ID, err)
	}
	s.log.Info("Deleted upload %d of owner '%s'", upload.ID, sess.Owner)
	return nil
}

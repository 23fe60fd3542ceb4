// Package ingest turns an uploaded CSV file into a stored, validated upload.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/reload"
	"github.com/mwantia/chemviz/pkg/retention"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/datatypes"
)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chemviz_ingest_uploads_total",
	Help: "Upload attempts by outcome.",
}, []string{"outcome"})

const (
	MessageMissingFile    = "Missing file. Upload a CSV file."
	MessageEmptyFile      = "CSV file is empty."
	MessageInvalidType    = "Invalid file type. Please upload a .csv file."
	MessageUnreadableCSV  = "Failed to read CSV file."
	MessageAllRowsInvalid = "All rows are invalid. Please fix the CSV and retry."
)

// Session identifies who an operation acts for. The zero value is the
// anonymous owner.
type Session struct {
	Owner string
}

// OwnerRef returns the stored owner key, nil for the anonymous owner.
func (s Session) OwnerRef() store.Owner {
	if s.Owner == "" {
		return nil
	}
	owner := s.Owner
	return &owner
}

// Source is one uploaded file. ContentType is optional.
type Source struct {
	FileName    string
	Name        string
	ContentType string
	Data        []byte
}

type Result struct {
	ID         uint
	Name       string
	Owner      string
	UploadedAt time.Time
	Summary    models.Summary
	Validation dataset.ValidationSummary
}

// Store is the part of the upload store used by the service.
type Store interface {
	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUpload(ctx context.Context, owner store.Owner, id uint) (*models.Upload, error)
	ListUploads(ctx context.Context, owner store.Owner, limit int) ([]models.Upload, error)
	DeleteUpload(ctx context.Context, owner store.Owner, id uint) (*models.Upload, error)
}

// Notifier receives an event after every committed upload.
type Notifier interface {
	Notify(event retention.Event) bool
}

type Service struct {
	cfg       config.IngestServerConfig
	store     Store
	blobs     storage.BlobStore
	loader    *reload.Loader
	notifier  Notifier
	validator *dataset.RowValidator
	log       log.LoggerService

	now func() time.Time
}

func NewService(cfg config.IngestServerConfig, s Store, blobs storage.BlobStore, loader *reload.Loader, notifier Notifier, logger log.LoggerService) *Service {
	return &Service{
		cfg:       cfg,
		store:     s,
		blobs:     blobs,
		loader:    loader,
		notifier:  notifier,
		validator: dataset.NewRowValidator(cfg.MaxRowErrors),
		log:       logger,
		now:       time.Now,
	}
}

// Ingest validates src and stores it for the session owner. Rejections are
// returned as *Error and leave nothing behind.
func (s *Service) Ingest(ctx context.Context, sess Session, src *Source) (*Result, error) {
	result, err := s.ingest(ctx, sess, src)

	var rejected *Error
	switch {
	case err == nil:
		uploadsTotal.WithLabelValues("accepted").Inc()
	case errors.As(err, &rejected):
		uploadsTotal.WithLabelValues(string(rejected.Reason)).Inc()
		s.log.Info("Rejected upload '%s' (%s): %s", fileName(src), rejected.Reason, rejected.Message)
	default:
		uploadsTotal.WithLabelValues("failed").Inc()
	}
	return result, err
}

func (s *Service) ingest(ctx context.Context, sess Session, src *Source) (*Result, error) {
	if src == nil || (src.FileName == "" && src.Data == nil) {
		return nil, reject(ReasonMissingFile, MessageMissingFile, nil)
	}

	table, err := s.check(src)
	if err != nil {
		return nil, err
	}

	required, err := dataset.ValidateSchema(table)
	if err != nil {
		var schemaErr *dataset.SchemaError
		if errors.As(err, &schemaErr) {
			return nil, &Error{Reason: ReasonMissingColumns, Message: schemaErr.Error(), Data: schemaErr}
		}
		return nil, err
	}

	validation, err := s.validator.Validate(required)
	if err != nil {
		if errors.Is(err, dataset.ErrAllRowsInvalid) {
			return nil, &Error{Reason: ReasonAllRowsInvalid, Message: MessageAllRowsInvalid, Data: validation.Summary, Err: err}
		}
		return nil, err
	}

	analytics := dataset.Analyze(validation.Accepted)
	analytics.RowCount = required.Len()
	analytics.FileSizeBytes = int64(len(src.Data))
	summary := models.Summary{AnalyticsSummary: analytics, Validation: validation.Summary}

	ref, err := s.blobs.Put(ctx, src.FileName, src.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = src.FileName
	}
	upload := &models.Upload{
		OwnerID:    sess.OwnerRef(),
		Name:       name,
		FileName:   src.FileName,
		FileRef:    ref,
		FileSize:   int64(len(src.Data)),
		Summary:    datatypes.NewJSONType(summary),
		UploadedAt: s.now().UTC(),
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			s.log.Warn("Failed to remove file '%s' of failed upload: %v", ref, delErr)
		}
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	s.log.Info("Stored upload %d '%s' for owner '%s' (%d of %d rows accepted)",
		upload.ID, upload.Name, sess.Owner, validation.Summary.AcceptedRows, validation.Summary.TotalRows)

	if s.notifier != nil {
		s.notifier.Notify(retention.Event{Owner: upload.OwnerID, UploadID: upload.ID})
	}

	return &Result{
		ID:         upload.ID,
		Name:       upload.Name,
		Owner:      upload.Owner(),
		UploadedAt: upload.UploadedAt,
		Summary:    summary,
		Validation: validation.Summary,
	}, nil
}

// check applies the boundary checks and parses the file.
func (s *Service) check(src *Source) (*dataset.Table, error) {
	if len(src.Data) == 0 {
		return nil, reject(ReasonEmptyFile, MessageEmptyFile, nil)
	}
	if int64(len(src.Data)) > s.cfg.MaxFileSize {
		message := fmt.Sprintf("File exceeds maximum size (%s).", humanize.IBytes(uint64(s.cfg.MaxFileSize)))
		return nil, reject(ReasonFileTooLarge, message, nil)
	}
	if !s.allowedType(src.ContentType) {
		return nil, reject(ReasonInvalidType, MessageInvalidType, nil)
	}
	if !strings.EqualFold(filepath.Ext(src.FileName), ".csv") {
		return nil, reject(ReasonInvalidType, MessageInvalidType, nil)
	}

	table, err := dataset.ParseCSV(bytes.NewReader(src.Data))
	if err != nil {
		return nil, reject(ReasonUnreadableCSV, MessageUnreadableCSV, err)
	}
	if table.Len() == 0 {
		return nil, reject(ReasonEmptyFile, MessageEmptyFile, nil)
	}
	if table.Len() > s.cfg.MaxRows {
		message := fmt.Sprintf("CSV exceeds maximum row limit (%d).", s.cfg.MaxRows)
		return nil, reject(ReasonTooManyRows, message, nil)
	}
	return table, nil
}

func (s *Service) allowedType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(s.cfg.AllowedMimeTypes, strings.ToLower(mediaType))
}

func fileName(src *Source) string {
	if src == nil {
		return ""
	}
	return src.FileName
}

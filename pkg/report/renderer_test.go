package report

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/reload"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) (*Renderer, *store.SQLiteStore, *storage.LocalBlobStore) {
	t.Helper()
	dir := t.TempDir()

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: filepath.Join(dir, "chemviz.db")})
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	blobs, err := storage.NewLocalBlobStore(filepath.Join(dir, "media"))
	require.NoError(t, err)

	logger := log.NewNopLoggerService()
	loader := reload.NewLoader(reload.Options{}, blobs, logger)
	r := NewRenderer(Options{Version: "1.0"}, s, loader, logger)
	r.now = func() time.Time { return generatedAt }
	return r, s, blobs
}

func TestRenderProducesPDF(t *testing.T) {
	r, s, blobs := newRenderer(t)
	ctx := context.Background()
	owner := "alice"

	upload := sampleUpload()
	upload.ID = 0
	upload.OwnerID = &owner
	ref, err := blobs.Put(ctx, upload.FileName, []byte(rawCSV))
	require.NoError(t, err)
	upload.FileRef = ref
	require.NoError(t, s.CreateUpload(ctx, upload))

	out, err := r.Render(ctx, &owner, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, FileName(upload.ID), out.FileName)
	assert.False(t, out.Degraded)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(out.Data, []byte("%%EOF")))

	latest, err := r.RenderLatest(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, upload.ID, latest.UploadID)

	require.NoError(t, blobs.Delete(ctx, ref))
	degraded, err := r.Render(ctx, &owner, upload.ID)
	require.NoError(t, err, "a missing raw file only degrades the report")
	assert.True(t, degraded.Degraded)
	assert.True(t, bytes.HasPrefix(degraded.Data, []byte("%PDF-")))
}

func TestRenderUnknownUpload(t *testing.T) {
	r, s, _ := newRenderer(t)
	ctx := context.Background()
	owner, other := "alice", "bob"

	upload := sampleUpload()
	upload.ID = 0
	upload.OwnerID = &owner
	require.NoError(t, s.CreateUpload(ctx, upload))

	_, err := r.Render(ctx, &owner, upload.ID+1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Render(ctx, &other, upload.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "uploads of other owners are invisible")

	_, err = r.RenderLatest(ctx, &other)
	assert.ErrorIs(t, err, ErrNoUploads)
}

func TestWritePDFPaginatesLongDocuments(t *testing.T) {
	doc := &Document{Title: "ChemViz Report", Version: "1.0"}
	doc.paragraph(StyleHeading2, "Überdruck Analyse")

	rows := [][]string{{"Equipment Name", "Type"}}
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{strings.Repeat("very long equipment name ", 4), "Pump"})
	}
	doc.add(Table{Rows: rows, Widths: []float64{200, 100}})
	doc.add(BarChart{Title: "Counts", Labels: []string{"a", "b"}, Values: []float64{0, 0}, Width: 420, Height: 180})
	doc.add(Logo{Initials: "CV", Size: 70}, PageBreak{}, Spacer{Height: 10})

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, doc, generatedAt))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("/Type /Page\n")), 2)
}

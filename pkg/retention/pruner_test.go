package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fixture struct {
	store *store.SQLiteStore
	blobs *storage.LocalBlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: filepath.Join(dir, "chemviz.db")})
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	blobs, err := storage.NewLocalBlobStore(filepath.Join(dir, "media"))
	require.NoError(t, err)
	return &fixture{store: s, blobs: blobs}
}

func (f *fixture) upload(t *testing.T, owner store.Owner, at time.Time) *models.Upload {
	t.Helper()
	ctx := context.Background()

	ref, err := f.blobs.Put(ctx, "data.csv", []byte("x"))
	require.NoError(t, err)

	upload := &models.Upload{
		OwnerID:    owner,
		Name:       "data.csv",
		FileName:   "data.csv",
		FileRef:    ref,
		Summary:    datatypes.NewJSONType(models.Summary{}),
		UploadedAt: at,
	}
	require.NoError(t, f.store.CreateUpload(ctx, upload))
	return upload
}

func (f *fixture) blobExists(t *testing.T, ref string) bool {
	t.Helper()
	path, err := f.blobs.Path(ref)
	require.NoError(t, err)
	_, err = os.Stat(path)
	return err == nil
}

func name(s string) store.Owner { return &s }

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPruneKeepsNewestAndDeletesFiles(t *testing.T) {
	f := newFixture(t)
	alice := name("alice")

	var uploads []*models.Upload
	for i := 0; i < 8; i++ {
		uploads = append(uploads, f.upload(t, alice, base.Add(time.Duration(i)*time.Second)))
	}

	p := NewPruner(Options{Keep: 5}, f.store, f.blobs, log.NewNopLoggerService())
	n, err := p.Prune(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	remaining, err := f.store.ListUploads(context.Background(), alice, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 5)
	for i, upload := range remaining {
		assert.Equal(t, uploads[7-i].ID, upload.ID)
	}

	for i, upload := range uploads {
		assert.Equal(t, i >= 3, f.blobExists(t, upload.FileRef), "upload %d", i)
	}
}

func TestRunDrainsQueuedEventsAfterClose(t *testing.T) {
	f := newFixture(t)
	alice, bob := name("alice"), name("bob")

	for i := 0; i < 3; i++ {
		f.upload(t, alice, base.Add(time.Duration(i)*time.Second))
		f.upload(t, bob, base.Add(time.Duration(i)*time.Second))
	}

	p := NewPruner(Options{Keep: 1, QueueSize: 4}, f.store, f.blobs, log.NewNopLoggerService())
	require.True(t, p.Notify(Event{Owner: alice}))
	p.Close()
	assert.False(t, p.Notify(Event{Owner: bob}), "closed pruner drops events")

	require.NoError(t, p.Run(context.Background()))

	aliceLeft, err := f.store.ListUploads(context.Background(), alice, 0)
	require.NoError(t, err)
	assert.Len(t, aliceLeft, 1)

	bobLeft, err := f.store.ListUploads(context.Background(), bob, 0)
	require.NoError(t, err)
	assert.Len(t, bobLeft, 3, "owners are pruned independently")
}

func TestNotifyDropsWhenQueueFull(t *testing.T) {
	f := newFixture(t)
	p := NewPruner(Options{Keep: 1, QueueSize: 1}, f.store, f.blobs, log.NewNopLoggerService())

	assert.True(t, p.Notify(Event{}))
	assert.False(t, p.Notify(Event{}))
}

func TestSweepQueuesEveryOwner(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.upload(t, name("alice"), base.Add(time.Duration(i)*time.Second))
		f.upload(t, nil, base.Add(time.Duration(i)*time.Second))
	}

	p := NewPruner(Options{Keep: 2, QueueSize: 8}, f.store, f.blobs, log.NewNopLoggerService())
	require.NoError(t, p.Sweep(context.Background()))
	p.Close()
	require.NoError(t, p.Run(context.Background()))

	for _, owner := range []store.Owner{name("alice"), nil} {
		left, err := f.store.ListUploads(context.Background(), owner, 0)
		require.NoError(t, err)
		assert.Len(t, left, 2)
	}
}

type failingStore struct{ Store }

func (failingStore) PruneUploads(context.Context, store.Owner, int) ([]models.Upload, error) {
	return nil, errors.New("database is locked")
}

func TestRunLogsAndContinuesOnFailure(t *testing.T) {
	f := newFixture(t)
	p := NewPruner(Options{Keep: 1, QueueSize: 2}, failingStore{f.store}, f.blobs, log.NewNopLoggerService())

	p.Notify(Event{Owner: name("alice")})
	p.Notify(Event{Owner: name("bob")})
	p.Close()

	assert.NoError(t, p.Run(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	p := NewPruner(Options{}, f.store, f.blobs, log.NewNopLoggerService())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
}

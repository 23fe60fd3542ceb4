package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/ingest"
	"github.com/mwantia/chemviz/pkg/log"
)

const (
	processedDir = "processed"
	rejectedDir  = "rejected"
)

// Ingester is the ingestion entry point used by the inbox.
type Ingester interface {
	Ingest(ctx context.Context, sess ingest.Session, src *ingest.Source) (*ingest.Result, error)
}

// Inbox ingests CSV files dropped into agent.inbox for agent.owner. Files
// are handled one at a time and moved to processed/ or rejected/, each with a
// .json record of the outcome. Files that fail for other reasons stay in
// place and are retried on the next scan.
type Inbox struct {
	Config   *config.BaseServerConfig `fabric:"inject"`
	Ingester Ingester                 `fabric:"inject"`
	Log      log.LoggerService        `fabric:"logger:inbox"`

	dir      string
	session  ingest.Session
	debounce time.Duration
	now      func() time.Time
}

func (i *Inbox) Init(ctx context.Context) error {
	i.dir = i.Config.Agent.Inbox
	if i.dir == "" {
		return errors.New("agent.inbox is not configured")
	}
	for _, sub := range []string{"", processedDir, rejectedDir} {
		if err := os.MkdirAll(filepath.Join(i.dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}
	i.session = ingest.Session{Owner: i.Config.Agent.Owner}
	i.debounce = 500 * time.Millisecond
	i.now = time.Now
	return nil
}

func (i *Inbox) Cleanup(ctx context.Context) error {
	return nil
}

// Run scans once and then on every change in the inbox until ctx is done.
func (i *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(i.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", i.dir, err)
	}
	i.Log.Info("Watching %s for uploads of owner '%s'", i.dir, i.session.Owner)

	i.Scan(ctx)

	// Debounce so a file is only picked up once it stopped changing.
	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			i.Log.Info("Stopping inbox watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(i.debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			i.Scan(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.Log.Error("Inbox watcher error: %v", err)
		}
	}
}

// Scan handles every CSV file currently in the inbox and returns how many
// were moved out of it.
func (i *Inbox) Scan(ctx context.Context) int {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		i.Log.Error("Failed to read inbox %s: %v", i.dir, err)
		return 0
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && isCSV(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	handled := 0
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		if i.handle(ctx, name) {
			handled++
		}
	}
	return handled
}

type outcome struct {
	File       string `json:"file"`
	Status     string `json:"status"`
	UploadID   uint   `json:"upload_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Details    any    `json:"details,omitempty"`
	Validation any    `json:"validation_summary,omitempty"`
	HandledAt  string `json:"handled_at"`
}

func (i *Inbox) handle(ctx context.Context, name string) bool {
	path := filepath.Join(i.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		i.Log.Warn("Failed to read inbox file %s: %v", name, err)
		return false
	}

	src := &ingest.Source{FileName: name, Data: data}
	result, err := i.Ingester.Ingest(ctx, i.session, src)

	record := outcome{File: name, HandledAt: i.now().UTC().Format(time.RFC3339)}
	target := processedDir

	var rejected *ingest.Error
	switch {
	case err == nil:
		record.Status = "accepted"
		record.UploadID = result.ID
		record.Validation = result.Validation
	case errors.As(err, &rejected):
		target = rejectedDir
		record.Status = "rejected"
		record.Reason = string(rejected.Reason)
		record.Error = rejected.Message
		record.Details = rejected.Data
	default:
		i.Log.Error("Failed to ingest inbox file %s, retrying later: %v", name, err)
		return false
	}

	stem := i.now().UTC().Format("20060102T150405") + "-" + name
	dest := filepath.Join(i.dir, target, stem)
	if err := os.Rename(path, dest); err != nil {
		i.Log.Error("Failed to move inbox file %s: %v", name, err)
		return false
	}

	encoded, err := json.MarshalIndent(record, "", "  ")
	if err == nil {
		err = os.WriteFile(dest+".json", encoded, 0o644)
	}
	if err != nil {
		i.Log.Warn("Failed to write outcome of %s: %v", name, err)
	}

	i.Log.Info("Inbox file %s %s", name, record.Status)
	return true
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

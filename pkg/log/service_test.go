package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/fabric/pkg/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, Debug, Parse("debug"))
	assert.Equal(t, Warn, Parse(" WARNING "))
	assert.Equal(t, Error, Parse("Error"))
	assert.Equal(t, Fatal, Parse("fatal"))
	assert.Equal(t, Info, Parse("whatever"))
	assert.Equal(t, "WARN", Warn.String())
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLoggerService("chemviz", config.LogServerConfig{Level: "warn"}, &buf)

	logger.Info("hidden %d", 1)
	logger.Warn("visible %d", 2)
	logger.Named("ingest").Error("failed: %s", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "WARN")
	assert.Contains(t, lines[0], "[chemviz] visible 2")
	assert.Contains(t, lines[1], "[chemviz/ingest] failed: boom")
}

func TestMessageWithoutArgsIsNotFormatted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLoggerService("", config.LogServerConfig{Level: "info"}, &buf)

	logger.Info("100% done")
	assert.Contains(t, buf.String(), "100% done")
}

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemviz.log")
	logger := NewLoggerService("agent", config.LogServerConfig{
		Level:      "debug",
		File:       path,
		JSON:       true,
		NoTerminal: true,
		Rotation:   config.LogServerRotationConfig{MaxSize: 1},
	})

	logger.Named("retention").Debug("pruned %d uploads", 3)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var entry logEntry
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Equal(t, "agent/retention", entry.Service)
	assert.Equal(t, "pruned 3 uploads", entry.Message)
}

func TestLoggerName(t *testing.T) {
	field := reflect.StructField{Name: "Report"}

	name, ok := loggerName(field, "logger")
	assert.False(t, ok)
	assert.Empty(t, name)

	name, ok = loggerName(field, "logger:pdf")
	assert.True(t, ok)
	assert.Equal(t, "pdf", name)

	name, ok = loggerName(field, "logger:")
	assert.True(t, ok)
	assert.Equal(t, "report", name)
}

func TestLoggerTagProcessorCanProcess(t *testing.T) {
	ltp := NewLoggerTagProcessor()
	assert.True(t, ltp.CanProcess("logger"))
	assert.True(t, ltp.CanProcess("Logger:store"))
	assert.False(t, ltp.CanProcess("inject"))
	assert.Equal(t, 50, ltp.GetPriority())
}

func TestLoggerTagProcessorWithoutLogger(t *testing.T) {
	sc := container.NewServiceContainer()

	_, err := NewLoggerTagProcessor().Process(context.Background(), sc, reflect.StructField{Name: "Store"}, "logger:store")
	assert.ErrorContains(t, err, "field 'Store'")
}

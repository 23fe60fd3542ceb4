package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// LoggerTagProcessor resolves `fabric:"logger"` and `fabric:"logger:<name>"`
// struct fields to the registered LoggerService. A bare "logger:" tag names the
// child logger after the lower-cased field name, so a field `Ingest` tagged
// `fabric:"logger:"` logs as ".../ingest".
type LoggerTagProcessor struct{}

func NewLoggerTagProcessor() *LoggerTagProcessor {
	return &LoggerTagProcessor{}
}

// GetPriority runs the processor ahead of the default inject processor (priority 0).
func (ltp *LoggerTagProcessor) GetPriority() int {
	return 50
}

func (ltp *LoggerTagProcessor) CanProcess(value string) bool {
	return strings.EqualFold(value, "logger") || strings.HasPrefix(strings.ToLower(value), "logger:")
}

func (ltp *LoggerTagProcessor) Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("failed to resolve LoggerService for field '%s': no logger service registered", field.Name)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved logger is not a LoggerService for field '%s'", field.Name)
	}

	name, named := loggerName(field, value)
	if !named {
		return base, nil
	}
	return base.Named(name), nil
}

func loggerName(field reflect.StructField, value string) (string, bool) {
	_, rest, found := strings.Cut(value, ":")
	if !found {
		return "", false
	}
	if name := strings.TrimSpace(rest); name != "" {
		return name, true
	}
	if field.Name == "" {
		return "", false
	}
	return strings.ToLower(field.Name), true
}

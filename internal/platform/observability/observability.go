// Package observability provides lightweight span and metric emission over
// the process logger, plus a host resource snapshot for the system endpoint.
package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config toggles instrumentation emission.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down any exporters registered during Setup.
type ShutdownFunc func(context.Context) error

var (
	mu      sync.RWMutex
	obsLog  *slog.Logger
	obsConf Config
)

func current() (*slog.Logger, Config) {
	mu.RLock()
	defer mu.RUnlock()
	return obsLog, obsConf
}

// Setup installs the instrumentation logger for the process.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	mu.Lock()
	obsLog = logger
	obsConf = cfg
	mu.Unlock()

	if logger != nil && cfg.Enabled {
		logger.InfoContext(ctx, "instrumentation enabled")
	}
	return func(context.Context) error { return nil }, nil
}

// Enabled reports whether instrumentation emission is on.
func Enabled() bool {
	_, cfg := current()
	return cfg.Enabled
}

// StartSpan records a span around one operation. The returned func closes
// the span; pass it the operation's error, nil on success.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := current()
	if logger == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)
	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "span end", attrs...)
	}
}

// RecordMetric emits a best-effort datapoint. Typical callers are the
// orchestrator (units synthesized, fallback count) and the assembler
// (encode durations).
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger, cfg := current()
	if logger == nil || !cfg.Enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "metric", attrs...)
}

// File path: internal/common/log.go
package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultLogHistory = 500

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	logOutput  io.Writer = os.Stderr
	sink                 = newLogSink(defaultLogHistory)
)

// LogEntry is a captured record served by the /v1/logs endpoint.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Component  string         `json:"component,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SetLogOutput redirects the text handler. It must be called before the
// first call to Logger; the MCP stdio mode relies on this to keep stdout
// reserved for protocol frames.
func SetLogOutput(w io.Writer) {
	if w != nil {
		logOutput = w
	}
}

// Logger returns the process-wide logger. LOG_LEVEL selects the level and
// LOG_FORMAT=json switches to the JSON handler.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		opts := &slog.HandlerOptions{Level: ParseLevel(os.Getenv("LOG_LEVEL"))}
		var base slog.Handler
		if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
			base = slog.NewJSONHandler(logOutput, opts)
		} else {
			base = slog.NewTextHandler(logOutput, opts)
		}
		logger = slog.New(&capturingHandler{handler: base, sink: sink})
	})
	return logger
}

// ParseLevel maps a LOG_LEVEL value onto a slog level, defaulting to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntries returns a copy of the captured entries, oldest first.
func LogEntries() []LogEntry {
	return sink.entries()
}

type capturingHandler struct {
	handler slog.Handler
	sink    *logSink
}

func (h *capturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *capturingHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	h.sink.capture(record)
	return err
}

func (h *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &capturingHandler{handler: h.handler.WithAttrs(attrs), sink: h.sink}
}

func (h *capturingHandler) WithGroup(name string) slog.Handler {
	return &capturingHandler{handler: h.handler.WithGroup(name), sink: h.sink}
}

type logSink struct {
	mu      sync.Mutex
	max     int
	next    int
	full    bool
	history []LogEntry
}

func newLogSink(max int) *logSink {
	if max <= 0 {
		max = defaultLogHistory
	}
	return &logSink{max: max, history: make([]LogEntry, max)}
}

func (s *logSink) capture(record slog.Record) {
	entry := buildLogEntry(record)
	s.mu.Lock()
	s.history[s.next] = entry
	s.next = (s.next + 1) % s.max
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
}

func (s *logSink) entries() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.full {
		if s.next == 0 {
			return nil
		}
		out := make([]LogEntry, s.next)
		copy(out, s.history[:s.next])
		return out
	}
	out := make([]LogEntry, 0, s.max)
	out = append(out, s.history[s.next:]...)
	out = append(out, s.history[:s.next]...)
	return out
}

func buildLogEntry(record slog.Record) LogEntry {
	entry := LogEntry{
		Time:    record.Time.UTC(),
		Level:   strings.ToLower(record.Level.String()),
		Message: record.Message,
	}
	if record.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	record.Attrs(func(a slog.Attr) bool {
		value := attrValue(a.Value)
		if a.Key == "component" {
			entry.Component = strings.TrimSpace(fmt.Sprint(value))
			return true
		}
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any)
		}
		entry.Attributes[a.Key] = value
		return true
	})
	// "pipeline: run finished" carries its component in the message prefix.
	if entry.Component == "" {
		if idx := strings.Index(entry.Message, ":"); idx > 0 {
			entry.Component = strings.TrimSpace(entry.Message[:idx])
		}
	}
	return entry
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return v.Bool()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.String()
	}
}

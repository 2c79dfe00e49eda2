// Package logging implements the relay's structured event sink (design §4.A).
// Every connection handler funnels its significant events — connected,
// disconnected, received, failed to send — through a Logger so that a single
// mutex-guarded writer owns the log file and stdout never interleaves lines.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies which actor logged an event.
type Kind string

const (
	KindClient      Kind = "client"
	KindDevTools    Kind = "devtools"
	KindServer      Kind = "server"
	KindRNInspector Kind = "rn_inspector"
	KindReactotron  Kind = "reactotron"
)

// Logger is a thread-safe, method-filterable sink over stdout and an optional file.
// The zero value is a disabled logger: Log and LogError become no-ops for Log
// (LogError always reaches stderr regardless of enablement).
type Logger struct {
	mu      sync.Mutex
	enabled bool
	console zerolog.Logger
	stderr  zerolog.Logger
	file    *os.File
	fileLog zerolog.Logger

	// methods, when non-empty, restricts Log calls to events whose method
	// argument is present in this set. Events with no method are dropped
	// when a filter is configured.
	methods map[string]struct{}
}

// New builds a Logger. filePath may be empty, meaning file output is disabled;
// the file is only opened when enabled is true.
// methodFilter may be empty, meaning no method filtering is applied.
func New(enabled bool, filePath string, methodFilter []string) (*Logger, error) {
	l := &Logger{
		enabled: enabled,
		console: zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
		stderr:  zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
	}
	if len(methodFilter) > 0 {
		l.methods = make(map[string]struct{}, len(methodFilter))
		for _, m := range methodFilter {
			l.methods[m] = struct{}{}
		}
	}
	if filePath == "" {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if !enabled {
		return l, nil
	}
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- operator-configured log path
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.file = f
	l.fileLog = zerolog.New(f).With().Timestamp().Logger()
	return l, nil
}

// Close releases the underlying file handle, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) allowed(method string) bool {
	if l.methods == nil {
		return true
	}
	if method == "" {
		return false
	}
	_, ok := l.methods[method]
	return ok
}

// Log writes a line describing a significant connection event. It is a no-op
// when the logger is disabled, or when a method filter is configured and
// method is absent or not in the filter. data is optional structured payload;
// method is the CDP method tag used for filtering (empty if not applicable).
func (l *Logger) Log(kind Kind, subjectID, message string, data map[string]any, method string) {
	if l == nil || !l.enabled {
		return
	}
	if !l.allowed(method) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	emit := func(ev *zerolog.Event) {
		ev = ev.Str("kind", string(kind)).Str("subject_id", subjectID)
		if method != "" {
			ev = ev.Str("method", method)
		}
		if data != nil {
			ev = ev.Interface("data", data)
		}
		ev.Msg(message)
	}

	emit(l.console.Info())
	if l.file != nil {
		emit(l.fileLog.Info())
	}
}

// LogError writes an error line. It always reaches stderr; it also reaches
// the log file if the logger is enabled and a file was configured.
func (l *Logger) LogError(kind Kind, subjectID, message string, err error) {
	if l == nil {
		fmt.Fprintf(os.Stderr, "[%s] %s: %v\n", kind, message, err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev := l.stderr.Error().Str("kind", string(kind)).Str("subject_id", subjectID)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(message)

	if l.enabled && l.file != nil {
		fev := l.fileLog.Error().Str("kind", string(kind)).Str("subject_id", subjectID)
		if err != nil {
			fev = fev.Err(err)
		}
		fev.Msg(message)
	}
}

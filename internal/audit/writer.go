package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger records audit entries. Implementations must be safe for
// concurrent use; callers treat failures as best-effort (logged, never
// propagated into the HTTP response).
type Logger interface {
	Log(rec Record) error
}

// FileLogger appends JSON-line records to a file, starting a fresh segment
// when the file exceeds the configured size instead of growing unbounded.
type FileLogger struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewFileLogger creates a FileLogger writing to path, rolling over at
// maxSizeMB megabytes. No rotation history is kept beyond lumberjack's
// default backup handling.
func NewFileLogger(path string, maxSizeMB int) *FileLogger {
	if maxSizeMB <= 0 {
		maxSizeMB = 1
	}
	return &FileLogger{
		out: &lumberjack.Logger{
			Filename: path,
			MaxSize:  maxSizeMB,
		},
	}
}

// Log appends one record as a single JSON line. The record is marshalled
// first and written in one call under the lock, so concurrent writers never
// interleave bytes.
func (l *FileLogger) Log(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(data); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Close()
}

// NopLogger discards all records. Used when audit logging is disabled by
// configuration.
type NopLogger struct{}

// Log implements Logger.
func (NopLogger) Log(Record) error { return nil }

// Package logging provides the event log of a projex workspace.
// Every entry goes to .projex/logs/projex.log; entries about a task are
// repeated in .projex/logs/task-<id>.log so `projex logs <id>` can show them.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

var _ domain.Logger = (*Logger)(nil)

// Logger appends formatted entries to the workspace log files.
// Files are opened lazily and kept open until Close.
type Logger struct {
	now     func() time.Time
	files   map[string]*os.File // keyed by path
	dataDir string
	mu      sync.Mutex
	level   slog.Level
}

// New creates a Logger for dataDir. An empty dataDir disables logging.
func New(dataDir string, level slog.Level) *Logger {
	return &Logger{
		now:     time.Now,
		files:   make(map[string]*os.File),
		dataDir: dataDir,
		level:   level,
	}
}

// ParseLevel maps a [log] level setting to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Close closes every log file opened so far.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for path, f := range l.files {
		errs = append(errs, f.Close())
		delete(l.files, path)
	}
	return errors.Join(errs...)
}

// Info logs an info message.
func (l *Logger) Info(taskID, category, msg string) {
	l.write(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID, category, msg string) {
	l.write(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning.
func (l *Logger) Warn(taskID, category, msg string) {
	l.write(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error.
func (l *Logger) Error(taskID, category, msg string) {
	l.write(slog.LevelError, taskID, category, msg)
}

func (l *Logger) write(level slog.Level, taskID, category, msg string) {
	if l.dataDir == "" || level < l.level {
		return
	}
	line := formatEntry(l.now(), level, taskID, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	paths := []string{domain.GlobalLogPath(l.dataDir)}
	if taskID != "" {
		paths = append(paths, domain.TaskLogPath(l.dataDir, taskID))
	}
	for _, path := range paths {
		f, err := l.file(path)
		if err != nil {
			continue
		}
		_, _ = io.WriteString(f, line)
	}
}

// file returns the open handle for path. Callers hold l.mu.
func (l *Logger) file(path string) (*os.File, error) {
	if f, ok := l.files[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // shared with the workspace group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.files[path] = f
	return f, nil
}

// formatEntry renders one line:
// [2024-01-01 09:00:00] [INFO] [task-3f2a] [dependency] message
func formatEntry(t time.Time, level slog.Level, taskID, category, msg string) string {
	scope := "global"
	if taskID != "" {
		scope = "task-" + taskID
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n", t.Format(time.DateTime), level, scope, category, msg)
}

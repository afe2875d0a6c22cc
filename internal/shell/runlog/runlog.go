// Package runlog manages the local append-only log file each run mirrors
// its diagnostics to.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RunLog is the per-run log file, named by the run start time.
type RunLog struct {
	Path string
	file *os.File
}

// Open creates the run's log file under dir.
// Pattern: deploy_YYYYMMDD_HHMMSS.log
func Open(dir string, startedAt time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("deploy_%s.log", startedAt.Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &RunLog{Path: path, file: f}, nil
}

// Writer returns a writer that mirrors output to stdout and the log file.
func (l *RunLog) Writer() io.Writer {
	return io.MultiWriter(os.Stdout, l.file)
}

// Close flushes and closes the log file.
func (l *RunLog) Close() error {
	return l.file.Close()
}

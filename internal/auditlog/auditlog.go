// SPDX-License-Identifier: MPL-2.0

// Package auditlog appends stage outcome lines to a log shared by benchmark
// processes running in parallel.
package auditlog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Log is an append-only line log. Each line is written with a single write
// while holding an exclusive lock on the file, so readers never observe
// interleaved partial lines.
type Log struct {
	path string
}

// New returns a log appending to path. An empty path disables the log.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

// Enabled reports whether appends are written anywhere.
func (l *Log) Enabled() bool { return l != nil && l.path != "" }

// Append writes line followed by a newline.
func (l *Log) Append(line string) error {
	if !l.Enabled() {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log %s: %w", l.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Debug("audit log close failed", "path", l.path, "error", cerr)
		}
	}()

	unlock, err := lockFile(f)
	if err != nil {
		return fmt.Errorf("lock audit log %s: %w", l.path, err)
	}
	defer unlock()

	if _, err := f.WriteString(strings.TrimSuffix(line, "\n") + "\n"); err != nil {
		return fmt.Errorf("append to audit log %s: %w", l.path, err)
	}
	return nil
}

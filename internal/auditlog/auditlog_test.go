// SPDX-License-Identifier: MPL-2.0

package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "split-run.log")
	log := New(path)
	if !log.Enabled() || log.Path() != path {
		t.Fatalf("New(%q) = %+v", path, log)
	}

	for _, line := range []string{"first", "second\n"} {
		if err := log.Append(line); err != nil {
			t.Fatalf("Append(%q) error = %v", line, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("log content = %q", data)
	}
}

func TestAppendDisabled(t *testing.T) {
	t.Parallel()

	var nilLog *Log
	if nilLog.Enabled() || New("").Enabled() {
		t.Error("a log without a path must be disabled")
	}
	if err := New("").Append("ignored"); err != nil {
		t.Errorf("Append() on a disabled log error = %v", err)
	}
}

func TestAppendConcurrentLinesStayWhole(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared.log")
	const writers, perWriter = 8, 50
	payload := strings.Repeat("x", 512)

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := New(path)
			for i := range perWriter {
				if err := log.Append(fmt.Sprintf("%d-%d %s", w, i, payload)); err != nil {
					t.Errorf("Append() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != writers*perWriter {
		t.Fatalf("got %d lines, want %d", len(lines), writers*perWriter)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, " "+payload) {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

func TestAppendUnwritablePath(t *testing.T) {
	t.Parallel()

	log := New(filepath.Join(t.TempDir(), "missing", "dir", "log"))
	if err := log.Append("line"); err == nil {
		t.Error("Append() expected an error for a missing directory")
	}
}

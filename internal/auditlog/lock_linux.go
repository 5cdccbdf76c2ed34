// SPDX-License-Identifier: MPL-2.0

//go:build linux

package auditlog

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a blocking exclusive flock on f. The kernel drops the lock
// when the descriptor is closed, including when the process dies.
func lockFile(f *os.File) (func(), error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return nil, err
	}
	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			slog.Debug("flock unlock failed", "error", err)
		}
	}, nil
}

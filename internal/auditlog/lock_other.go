// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package auditlog

import "os"

// lockFile is a no-op where flock is unavailable. O_APPEND writes of a
// single line remain atomic on local filesystems.
func lockFile(*os.File) (func(), error) {
	return func() {}, nil
}

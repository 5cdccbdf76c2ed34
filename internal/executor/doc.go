// SPDX-License-Identifier: MPL-2.0

// Package executor runs a single benchmark stage inside a scope that owns
// the stage's log files. The scope prints the stage banner, records the
// outcome in the stage plan and, on failure, dumps the captured output
// together with the commands an operator needs to reproduce the stage.
package executor

// SPDX-License-Identifier: MPL-2.0

// Package runtime runs benchmark stage processes on the host.
//
// A Runner executes one Command to completion, streaming its output into the
// given writers and reporting the exit code. Stages never run concurrently;
// a Run call blocks until the process exits. The context only stops a
// process that has not started yet or is being torn down by the caller.
package runtime

// SPDX-License-Identifier: MPL-2.0

// Package stages defines the pipeline stages of a native-image benchmark and
// the plan that decides which of them run.
//
// The canonical order (agent, instrument-image, instrument-run, image, run)
// is derived from the artifacts each stage hands to the next. A Plan combines
// the requested stages with the stages a configuration cannot run, and
// records progress until the last effective stage completes or one fails.
package stages

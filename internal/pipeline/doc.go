// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives the stages of one native-image benchmark: it
// selects the stages to run, dispatches each to its handler inside an
// executor scope and extracts metrics from the benchmark output once the
// stages succeeded.
package pipeline

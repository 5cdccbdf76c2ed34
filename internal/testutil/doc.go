// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by the package tests: an
// injectable clock, a scripted process runner and file helpers that fail the
// test on error.
package testutil

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the nibench command tree.
//
// Every command handler receives the App composition root and reaches the
// configuration, process runner and clock through it, so tests can swap any
// of them without touching package state.
package cmd

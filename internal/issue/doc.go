// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for recovery. Errors may link to a catalog entry whose markdown
// explanation is rendered with glamour.
package issue

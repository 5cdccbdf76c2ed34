// SPDX-License-Identifier: MPL-2.0

// Package metrics turns benchmark process output into metric records.
//
// A Rule pairs a regular expression with a Template. A Strategy decides
// which documents the template is projected from: pattern matches in stdout,
// matches after a start marker, or JSON reports found through stdout or at a
// fixed path. Evaluate runs an ordered rule list through one interpreter.
package metrics

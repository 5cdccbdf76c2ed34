// SPDX-License-Identifier: MPL-2.0

// Package metricstore persists extracted metric records in a local SQLite
// database so results of separate invocations can be listed and compared.
//
// Each benchmark invocation opens a run with [Store.BeginRun]; the returned
// [RunSink] satisfies metrics.Sink and writes every record of the run in a
// single transaction.
package metricstore

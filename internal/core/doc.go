// Package core is the workspace behind the HTTP server: a set of named
// in-memory tables that can be loaded, queried, exported and undone.
//
// # Tables
//
// A table enters the workspace from CSV/TSV text ([Service.Load]), a JSON
// recordset ([Service.LoadRecords]) or a PostgreSQL query ([Service.Import]).
// Names are 1 to 64 characters of letters, digits, '_', '-' and '.'.
//
// # Statements
//
// [Service.Query] runs SELECT, UPDATE, DELETE and INSERT statements through
// the query package. Results are copies; callers never see workspace state.
// Every change is recorded in a bounded per-table history and the newest
// changes can be reverted with [Service.Undo].
//
// # Limits
//
// Loads and imports share a [LoadLimiter]. Tables untouched for the idle
// TTL are dropped by [Service.StartEvictionScheduler].
//
// # Errors
//
// Technical errors map to coded user messages with [MapError]:
//
//   - QRY: statements and WHERE clauses
//   - TBL: table names, limits and undo
//   - FILE: request bodies
//   - DB: database import
//   - RATE, REQ: throttling, cancellation and timeouts
package core

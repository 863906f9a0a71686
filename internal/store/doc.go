// Package store provides a SQLite-backed vertex document backend.
//
// Every vertex is one row of the Node table: its id, label and the whole
// document as JSON text. Emitted SQL queries run unchanged against the
// table; adjacency lists are cross-applied with json_each and properties
// are read with json_extract.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Documents are written as RFC 8785 canonical JSON (see ir.MarshalCanonical)
// so that identical documents produce identical rows.
package store

// Package store provides the SQLite translation archive.
//
// Every kernel source a provider generates can be appended to the archive
// together with its structural program key, backend and kernel name. The
// archive is an append-only log for inspection; the compiled-program cache
// is in-memory only and never consults it.
//
// # Ordering
//
//   - seq is assigned by SQLite (AUTOINCREMENT) in insertion order
//   - All list queries order by seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

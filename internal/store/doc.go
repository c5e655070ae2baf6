// Package store provides SQLite-backed world state for the platform.
//
// The store holds the social graph (user, follow, mute), content (post,
// comment), rating relations (like, dislike, comment_like, comment_dislike),
// the append-only audit log (trace), the recommendation cache (rec) and the
// product ledger (product).
//
// # Invariants
//
//   - Counter columns equal the live row count of the matching relation.
//   - At most one row per (subject, user) in each rating relation and at most
//     one live edge per ordered pair in follow and mute. UNIQUE indexes back
//     the checks the platform performs before inserting.
//   - trace is append-only. rec is replaced wholesale on every rebuild.
//
// # Concurrency
//
// The store is written by exactly one goroutine, the platform loop. The pool
// is limited to one connection so an in-memory database is a single shared
// instance; callers must close rows before issuing the next statement.
//
// # Drivers
//
// Two database/sql drivers are linked: "sqlite3" (mattn/go-sqlite3, cgo) and
// "sqlite" (modernc.org/sqlite, pure Go). Both accept the same schema and
// pragmas.
package store

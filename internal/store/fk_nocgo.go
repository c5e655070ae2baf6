//go:build !cgo

package store

// isCGOForeignKeyViolation is false without cgo: the mattn/go-sqlite3 stub
// driver never opens a connection, so it cannot report constraint errors.
func isCGOForeignKeyViolation(err error) bool {
	return false
}

//go:build cgo

package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// isCGOForeignKeyViolation reports whether err is a mattn/go-sqlite3
// foreign key constraint failure.
func isCGOForeignKeyViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

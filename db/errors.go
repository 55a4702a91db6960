package db

import (
	"strings"

	"github.com/teranos/jbind/errors"
)

// ErrDatabaseClosed marks work on a manifest database that was closed
// underneath it, e.g. when watch shuts down mid-run.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the
// database/sql error for a closed pool, which drivers do not wrap.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}

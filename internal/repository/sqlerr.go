package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlLockDeadlock   = 1213 // ER_LOCK_DEADLOCK
)

// isUniqueViolation reports whether err is a unique or primary key violation
// from either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// primary code only, when extended result codes are off
			return strings.Contains(se.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

// isDeadlock reports whether err is a MySQL deadlock.  InnoDB has already
// rolled the transaction back, so the whole transaction may be retried.
func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlLockDeadlock
}

// dbTime normalizes timestamps before they reach the database.  Both
// backends store second precision UTC, which keeps SQLite's textual
// timestamps lexically ordered for range predicates.
func dbTime(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

// Package repository holds the MySQL-backed stores. Errors that callers need
// to branch on are translated into the domain error family here so handlers
// never look at driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories react to.
const (
	errDuplicateEntry = 1062
	errLockDeadlock   = 1213
	errLockWaitTimout = 1205
)

// isDuplicateKey reports a unique or primary key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// isLockContention reports a deadlock or lock wait timeout. Both roll the
// transaction back and are safe for the caller to retry.
func isLockContention(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errLockDeadlock || me.Number == errLockWaitTimout
}

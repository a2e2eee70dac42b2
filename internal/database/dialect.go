package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// Dialect selects SQL differences between the supported engines. Its value
// is also the goose dialect name and the migrations directory.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case MySQL, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", s)
}

// LockCourtRow returns the statement that pins a court row for the rest of
// the transaction. SQLite already holds the database write lock after
// BEGIN IMMEDIATE and has no row locks.
func (d Dialect) LockCourtRow() string {
	if d == MySQL {
		return "SELECT id FROM courts WHERE id = ? FOR UPDATE"
	}
	return "SELECT id FROM courts WHERE id = ?"
}

// LockPaymentRow pins a payment row so no reservation can link it while
// it is being deleted.
func (d Dialect) LockPaymentRow() string {
	if d == MySQL {
		return "SELECT id FROM payments WHERE id = ? FOR UPDATE"
	}
	return "SELECT id FROM payments WHERE id = ?"
}

const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// IsUniqueViolation reports a duplicate key error from either driver.
func IsUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsForeignKeyViolation reports a foreign key error from either driver,
// whether the missing side is the parent or the child. SQLite reports a
// delete blocked by ON DELETE RESTRICT as a trigger constraint.
func IsForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlRowIsReferenced || me.Number == mysqlNoReferencedRow
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return true
		case sqlite3.ErrConstraintTrigger:
			return strings.Contains(se.Error(), "FOREIGN KEY")
		}
	}
	return false
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "dialect.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, SQLite, nil))
	return db
}

func TestSQLiteConstraintClassification(t *testing.T) {
	db := openMigrated(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx, `INSERT INTO courts (id, name, created_at, updated_at) VALUES (1, 'Cancha 1', ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, name, email, created_at) VALUES (1, 'Ana', 'ana@example.com', ?)`, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO reservations (court_id, user_id, booking_date, start_minute, end_minute, created_at)
		 VALUES (1, 1, '2025-12-01', 1080, 1140, ?)`, now)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM courts WHERE id = 1`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err), "restricted delete of a referenced court: %v", err)
	assert.False(t, IsUniqueViolation(err))

	_, err = db.ExecContext(ctx,
		`INSERT INTO reservations (court_id, user_id, booking_date, start_minute, end_minute, created_at)
		 VALUES (1, 42, '2025-12-01', 600, 660, ?)`, now)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err), "missing parent row: %v", err)

	_, err = db.ExecContext(ctx, `INSERT INTO users (name, email, created_at) VALUES ('Otra', 'ana@example.com', ?)`, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestMySQLErrorClassification(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1451}))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsForeignKeyViolation(errors.New("FOREIGN KEY constraint failed")))
}

func TestRowLockStatements(t *testing.T) {
	assert.Contains(t, MySQL.LockCourtRow(), "FOR UPDATE")
	assert.Contains(t, MySQL.LockPaymentRow(), "FOR UPDATE")
	assert.NotContains(t, SQLite.LockPaymentRow(), "FOR UPDATE")

	d, err := ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)
	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}

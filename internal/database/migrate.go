package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/mysql/*.sql migrations/sqlite3/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

type gooseLogger struct{ *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

// Migrate applies every pending migration of the dialect.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, log *zap.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if log == nil {
		log = zap.NewNop()
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log.Sugar()})
	if err := goose.SetDialect(string(d)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/"+string(d)); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Version returns the latest applied migration.
func Version(ctx context.Context, db *sql.DB, d Dialect) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(string(d)); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/config"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/repository"
)

// OpenDB opens the SQL database selected by DB_DRIVER. It fails for the
// memory driver, which has no database.
func OpenDB(cfg config.Config) (*sql.DB, database.Dialect, error) {
	d, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}
	var db *sql.DB
	switch d {
	case database.MySQL:
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case database.SQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", d, err)
	}
	return db, d, nil
}

// OpenStore builds the repository set for the configured driver. db is nil
// for the memory driver.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Set, *sql.DB, error) {
	if cfg.DBDriver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemorySet(), nil, nil
	}
	db, d, err := OpenDB(cfg)
	if err != nil {
		return repository.Set{}, nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, d, log); err != nil {
			_ = db.Close()
			return repository.Set{}, nil, err
		}
	}
	log.Info("database ready", zap.String("driver", string(d)))
	return repository.NewSQLSet(db, d), db, nil
}

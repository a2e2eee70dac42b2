package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/app"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/config"
	"github.com/Pazbe-cs/reservas-canchas-de-padel/internal/database"
)

func main() {
	root := &cobra.Command{
		Use:          "reservas",
		Short:        "Court reservation API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations and exit",
			RunE:  runMigrate,
		},
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, app.NewLogger(cfg.Env), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DBDriver == "memory" {
		return fmt.Errorf("nothing to migrate for the memory driver")
	}
	db, d, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := database.Migrate(ctx, db, d, log); err != nil {
		return err
	}
	v, err := database.Version(ctx, db, d)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("driver", string(d)), zap.Int64("version", v))
	return nil
}

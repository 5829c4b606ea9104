// Command migrate manages the PostgreSQL snapshot schema.
//
// Usage:
//
//	migrate [-config path] [-steps n] up|down|status
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/observability"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	steps := flag.Int("steps", 0, "limit up/down to this many migrations (0 = all)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|status\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg.Database.DSN(), flag.Arg(0), *steps, logger); err != nil {
		logger.Fatal("migration failed", zap.String("action", flag.Arg(0)), zap.Error(err))
	}
}

func run(dsn, action string, steps int, logger *zap.Logger) error {
	m, err := postgres.Migrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "status":
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	unchanged := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !unchanged {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("schema is empty", zap.String("action", action))
		return nil
	case err != nil:
		return fmt.Errorf("reading version: %w", err)
	}
	logger.Info("schema version",
		zap.String("action", action),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("changed", action != "status" && !unchanged),
	)
	return nil
}

// Command setrole grants or revokes admin rights on a saved player.
//
// Usage:
//
//	setrole [-config path] <player> player|admin
//
// It edits the saved world directly, so run it while the server is stopped; a
// running server overwrites the snapshot on its next save.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/observability"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/storage/backend"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <player> %s|%s\n",
			os.Args[0], storage.RolePlayer, storage.RoleAdmin)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 || !storage.ValidRole(flag.Arg(1)) {
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := run(ctx, cfg, flag.Arg(0), flag.Arg(1), logger); err != nil {
		logger.Fatal("setting role failed", zap.String("player", flag.Arg(0)), zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, name, role string, logger *zap.Logger) error {
	be, err := backend.Open(ctx, cfg.Persistence, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer be.Close()
	if be.Store == nil {
		return fmt.Errorf("persistence backend %q keeps no players", cfg.Persistence.Backend)
	}

	snap, err := be.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading saved world: %w", err)
	}
	previous, err := storage.SetRole(snap, name, role)
	if err != nil {
		return err
	}
	if err := be.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving world: %w", err)
	}
	logger.Info("role updated",
		zap.String("player", name),
		zap.String("from", previous),
		zap.String("to", role),
	)
	return nil
}

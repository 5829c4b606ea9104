// Package main provides the game server binary: it loads the world, serves
// players over Telnet and exposes the management endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hearth/internal/config"
	"github.com/cory-johannsen/hearth/internal/frontend/telnet"
	"github.com/cory-johannsen/hearth/internal/game/authority"
	"github.com/cory-johannsen/hearth/internal/game/command"
	"github.com/cory-johannsen/hearth/internal/game/dice"
	"github.com/cory-johannsen/hearth/internal/game/scheduler"
	"github.com/cory-johannsen/hearth/internal/game/session"
	"github.com/cory-johannsen/hearth/internal/game/world"
	"github.com/cory-johannsen/hearth/internal/management"
	"github.com/cory-johannsen/hearth/internal/observability"
	"github.com/cory-johannsen/hearth/internal/scripting"
	"github.com/cory-johannsen/hearth/internal/server"
	"github.com/cory-johannsen/hearth/internal/storage"
	"github.com/cory-johannsen/hearth/internal/storage/backend"
	"github.com/cory-johannsen/hearth/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	feed := observability.NewFeed(cfg.Management.Backlog)
	logger, err := observability.NewLogger(cfg.Logging, feed)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("name", cfg.Server.Name),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	var src dice.Source
	if cfg.Game.Seed != 0 {
		src = dice.NewSeededSource(cfg.Game.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewRoller(src, logger)

	// Load world
	zoneStart := time.Now()
	zones, err := world.LoadZonesFromDir(cfg.Game.WorldDir)
	if err != nil {
		logger.Fatal("loading zones", zap.String("dir", cfg.Game.WorldDir), zap.Error(err))
	}
	rooms, err := world.NewManager(zones)
	if err != nil {
		logger.Fatal("creating world manager", zap.Error(err))
	}
	if cfg.Game.StartRoom != "" {
		if err := rooms.SetStartRoom(cfg.Game.StartRoom); err != nil {
			logger.Fatal("setting start room", zap.Error(err))
		}
	}
	logger.Info("world loaded",
		zap.Int("zones", rooms.ZoneCount()),
		zap.Int("rooms", rooms.RoomCount()),
		zap.Duration("elapsed", time.Since(zoneStart)),
	)

	opts := []authority.Option{}
	var scriptMgr *scripting.Manager
	if cfg.Game.ScriptDir != "" {
		scriptStart := time.Now()
		scriptMgr = scripting.NewManager(roller, logger, 0)
		n, err := scriptMgr.LoadDir(cfg.Game.ScriptDir)
		if err != nil {
			logger.Fatal("loading scripts", zap.String("dir", cfg.Game.ScriptDir), zap.Error(err))
		}
		defer scriptMgr.Close()
		opts = append(opts, authority.WithScripter(scriptMgr))
		logger.Info("scripting engine initialized",
			zap.Int("files", n),
			zap.Duration("elapsed", time.Since(scriptStart)),
		)
	}

	sched := scheduler.New(nil, logger)
	opts = append(opts, authority.WithTracker(sched))
	w := authority.NewWorld(rooms, authority.ConfigFromGame(cfg.Game), roller, logger, opts...)
	auth := authority.New(w, logger)
	sched.SetRunner(auth)

	lifecycle := server.NewLifecycle(logger)

	// Persistence
	be, err := backend.Open(ctx, cfg.Persistence, cfg.Database, logger)
	if err != nil {
		logger.Fatal("opening snapshot store", zap.Error(err))
	}
	store := be.Store
	if be.Pool != nil {
		lifecycle.Add("postgres", postgres.NewMonitor(be.Pool, 30*time.Second, logger))
	}
	defer be.Close()

	populated := false
	if store != nil {
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		snap, err := store.Load(loadCtx)
		cancel()
		switch {
		case errors.Is(err, storage.ErrNoSnapshot):
			logger.Info("no saved world, starting fresh")
		case err != nil:
			logger.Fatal("loading saved world", zap.Error(err))
		case !snap.Empty():
			if err := w.Load(snap); err != nil {
				logger.Fatal("restoring saved world", zap.Error(err))
			}
			populated = true
		}
	}
	if !populated {
		n := w.Populate(rooms.Placements())
		logger.Info("world populated", zap.Int("objects", n))
	}

	interp := command.NewInterpreter(auth, command.DefaultRegistry(), logger)
	sessOpts := session.OptionsFromConfig(cfg.Server, cfg.Telnet)
	sessOpts.OnShutdown = func() { lifecycle.Shutdown("admin command") }
	sessMgr := session.NewManager(auth, interp, sessOpts, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, sessMgr, logger)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Services stop in reverse order: players leave first, then the final
	// save runs while the authority still accepts work.
	lifecycle.Add("authority", &server.FuncService{
		StartFn: func() error { return auth.Run(runCtx) },
		StopFn: func() {
			auth.Stop()
			<-auth.Done()
		},
	})
	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  sched.Stop,
	})
	if store != nil {
		saver := storage.NewSaver(auth, store, cfg.Persistence.Interval, logger)
		lifecycle.Add("saver", saver)
	}
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.Start,
		StopFn: func() {
			acceptor.Stop()
			sessMgr.CloseAll(session.ReasonShutdown)
			sessMgr.Wait()
		},
	})
	if cfg.Management.Enabled {
		mgmt := management.New(cfg.Management, cfg.Server.Name, acceptor, sessMgr, feed, logger)
		lifecycle.Add("management", mgmt)
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("rooms", rooms.RoomCount()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/chatterbox/chatserver/internal/adminapi"
	"github.com/chatterbox/chatserver/internal/broadcast"
	"github.com/chatterbox/chatserver/internal/config"
	"github.com/chatterbox/chatserver/internal/dal"
	"github.com/chatterbox/chatserver/internal/dispatcher"
	"github.com/chatterbox/chatserver/internal/gateway"
	"github.com/chatterbox/chatserver/internal/metrics"
	"github.com/chatterbox/chatserver/internal/reactor"
	"github.com/chatterbox/chatserver/internal/registry"
	"github.com/chatterbox/chatserver/internal/seed"
	"github.com/chatterbox/chatserver/internal/service"
	"github.com/chatterbox/chatserver/internal/session"
)

func main() {
	app := &cli.App{
		Name:  "chatserver",
		Usage: "multi-room realtime chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "path to a .env-style file to seed process environment",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the chat server",
				Action: func(c *cli.Context) error {
					return runServe(c.String("env-file"))
				},
			},
			{
				Name:  "seed",
				Usage: "load a room manifest into the database and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "room manifest YAML path", Required: true},
				},
				Action: func(c *cli.Context) error {
					return runSeed(c.String("env-file"), c.String("file"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("chatserver: fatal", "err", err)
		os.Exit(1)
	}
}

func runServe(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool, err := gateway.NewPool(cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := dal.NewSQLDAL(pool, cfg.DB.ConnectTimeout)
	users := service.NewUserService(store)
	rooms := service.NewRoomService(store)
	messages := service.NewMessageService(store)

	reg := registry.New()
	sessions := session.NewStore(cfg.TokenExpire)

	stopSweep := make(chan struct{})
	defer close(stopSweep)
	sessions.StartSweeper(cfg.CleanupInterval, stopSweep)

	m := metrics.New()

	threadPoolSize := cfg.ThreadPoolSize
	if threadPoolSize <= 0 {
		threadPoolSize = runtime.NumCPU()
	}

	r := reactor.New(nil, threadPoolSize, cfg.RateLimit.FramesPerSecond, cfg.RateLimit.Burst)
	bc := broadcast.New(reg, r)
	d := dispatcher.New(reg, sessions, users, rooms, messages, bc, r)
	r.SetHandler(d)

	// Every persisted room is loaded into the registry unconditionally at
	// startup (ChatRoomServer.cpp's loadRoomsFromDatabase, called before the
	// accept loop starts), not only when a seed manifest is configured.
	if result := rooms.GetAllRooms(); result.OK() {
		for _, room := range result.Value {
			reg.LoadRoom(room)
		}
		slog.Info("chatserver: loaded persisted rooms", "count", len(result.Value))
	} else {
		slog.Warn("chatserver: failed to load persisted rooms", "err", result.Message)
	}

	if cfg.SeedFile != "" {
		manifest, err := seed.Load(cfg.SeedFile)
		if err != nil {
			slog.Warn("chatserver: seed file not loaded", "err", err)
		} else {
			n := seed.Apply(manifest, rooms, reg)
			slog.Info("chatserver: seeded rooms", "count", n)
		}
	}

	var admin *adminapi.Server
	if cfg.AdminAPI.Enabled {
		admin = adminapi.New(cfg.AdminAPI, reg, sessions, pool, m)
		if err := admin.Start(); err != nil {
			return fmt.Errorf("starting admin API: %w", err)
		}
	}

	configWatcher, err := config.NewWatcher(envFile, func(knobs config.MutableKnobs) {
		sessions.SetTokenExpire(knobs.TokenExpire)
	})
	if err != nil {
		slog.Warn("chatserver: config hot-reload not available", "err", err)
	}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: cfg.ServerPort})
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", cfg.ServerPort, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- r.Serve(ctx, ln) }()

	slog.Info("chatserver: ready", "port", cfg.ServerPort, "workers", threadPoolSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("chatserver: received signal, shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			slog.Error("chatserver: reactor stopped unexpectedly", "err", err)
		}
	}

	cancel()
	r.Shutdown()
	if configWatcher != nil {
		_ = configWatcher.Stop()
	}
	if admin != nil {
		_ = admin.Stop()
	}

	slog.Info("chatserver: stopped")
	return nil
}

func runSeed(envFile, manifestPath string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool, err := gateway.NewPool(cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := dal.NewSQLDAL(pool, cfg.DB.ConnectTimeout)
	rooms := service.NewRoomService(store)
	reg := registry.New()

	manifest, err := seed.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest %s: %w", manifestPath, err)
	}

	n := seed.Apply(manifest, rooms, reg)
	slog.Info("chatserver: seed complete", "rooms_created", n)
	return nil
}

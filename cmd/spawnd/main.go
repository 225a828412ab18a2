package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/npcspawn/internal/admin"
	"github.com/udisondev/npcspawn/internal/config"
	"github.com/udisondev/npcspawn/internal/data"
	"github.com/udisondev/npcspawn/internal/db"
	"github.com/udisondev/npcspawn/internal/spawn"
	"github.com/udisondev/npcspawn/internal/world"
)

const (
	ConfigPath = "config/npcspawn.yaml"
	EnvPath    = ".env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadEnvFile(EnvPath); err != nil {
		return fmt.Errorf("loading %s: %w", EnvPath, err)
	}

	cfgPath := ConfigPath
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadSpawner(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("npcspawn starting",
		"log_level", cfg.LogLevel,
		"tick_interval", cfg.TickInterval,
		"batch_size", cfg.BatchSize,
		"store", cfg.Store.Driver)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	w := world.New()
	if err := data.LoadWorld(cfg.WorldPath, w); err != nil {
		return fmt.Errorf("loading world: %w", err)
	}
	slog.Info("world loaded", "path", cfg.WorldPath, "rooms", w.RoomCount())

	source, err := declarationSource(cfg)
	if err != nil {
		return err
	}

	scheduler := spawn.NewScheduler(spawn.Config{
		TickInterval: cfg.TickInterval,
		BatchSize:    cfg.BatchSize,
	}, spawn.Deps{
		Rooms:     w,
		Templates: w,
		Factory:   w,
		World:     w,
	}, store)
	w.OnDeath(scheduler.OnDeath)

	if err := populate(ctx, scheduler, source); err != nil {
		return err
	}

	app := admin.NewApp(admin.NewHandler(scheduler, source, w), cfg.Admin.APIKey)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return admin.Serve(gctx, app, cfg.Admin.Addr())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("npcspawn stopped", "ticks", scheduler.TickCount())
	return nil
}

// populate restores persisted entries; an empty store is seeded from the declaration source.
func populate(ctx context.Context, s *spawn.Scheduler, source spawn.DeclarationSource) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	if s.EntryCount() > 0 {
		spawned, err := s.Bootstrap(ctx)
		if err != nil {
			slog.Warn("bootstrap finished with errors", "spawned", spawned, "err", err)
		}
		return nil
	}

	spawned, err := s.ReloadFrom(ctx, source)
	if err != nil {
		if spawned == 0 && s.EntryCount() == 0 {
			return fmt.Errorf("initial spawn: %w", err)
		}
		slog.Warn("initial spawn finished with errors", "spawned", spawned, "err", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Spawner) (spawn.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		dsn := cfg.Database.DSN()
		if err := db.RunMigrations(ctx, dsn); err != nil {
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		database, err := db.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected", "host", cfg.Database.Host)
		return db.NewSpawnRepository(database.Pool()), database.Close, nil

	case config.StoreSQLite:
		repo, err := db.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		slog.Info("sqlite store opened", "path", cfg.Store.Path)
		return repo, func() {
			if err := repo.Close(); err != nil {
				slog.Error("closing sqlite store", "err", err)
			}
		}, nil

	default:
		slog.Warn("spawn entries are not persisted")
		return nil, func() {}, nil
	}
}

func declarationSource(cfg config.Spawner) (spawn.DeclarationSource, error) {
	if !cfg.ObjectStore.Enabled() {
		return data.FileSource{Path: cfg.DeclarationsPath}, nil
	}

	client, err := data.NewObjectClient(cfg.ObjectStore)
	if err != nil {
		return nil, err
	}
	slog.Info("declarations from object storage",
		"endpoint", cfg.ObjectStore.Endpoint,
		"bucket", cfg.ObjectStore.Bucket,
		"object", cfg.ObjectStore.Object)
	return data.NewObjectSource(client, cfg.ObjectStore.Bucket, cfg.ObjectStore.Object), nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

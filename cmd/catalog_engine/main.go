package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/harvesthub/catalog-engine/api"
	"github.com/harvesthub/catalog-engine/config"
	"github.com/harvesthub/catalog-engine/internal/engine"
	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/internal/source"
)

const version = "1.0.0"

func main() {
	var (
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
		configPath = flag.String("config", "", "Path to a YAML config file (default: $CONFIG_PATH, ./config.yaml)")
		envFile    = flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	)

	flag.Parse()

	if *help {
		fmt.Printf("HarvestHub Catalog Engine - equipment catalog queries for the rental assistant\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                            # Serve catalog.json on port 8080\n", os.Args[0])
		fmt.Printf("  %s --config /etc/catalog.yaml # Use a config file\n", os.Args[0])
		fmt.Printf("  CATALOG_SOURCE=postgres %s     # Read the catalog from PostgreSQL\n", os.Args[0])
		return
	}

	if *showVer {
		fmt.Printf("HarvestHub Catalog Engine v%s\n", version)
		return
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging.ToLogging())

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("catalog engine stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, closeLoader, err := buildLoader(cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	eng, err := engine.New(engine.Options{
		Settings:      cfg.Engine,
		Loader:        loader,
		MaxWorkers:    cfg.Jobs.MaxWorkers,
		JobRetention:  cfg.Jobs.Retention,
		SnapshotPath:  cfg.Snapshot.Path,
		SaveOnRefresh: cfg.Snapshot.SaveOnRefresh,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	warm, err := eng.WarmStart()
	if err != nil {
		logging.Warn().Err(err).Msg("ignoring unreadable snapshot")
	}
	if _, err := eng.Refresh(ctx); err != nil {
		if !warm {
			// Keep serving so /health and the refresh endpoint stay reachable.
			logging.Error().Err(err).Msg("initial catalog load failed; queries return 503 until a refresh succeeds")
		} else {
			logging.Warn().Err(err).Msg("initial refresh failed, serving the saved snapshot")
		}
	}
	go eng.RunPeriodicRefresh(ctx, cfg.Source.RefreshInterval)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, eng)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Str("source", loader.Name()).Msg("starting server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildLoader creates the configured catalog source, wrapped in the Redis
// cache when enabled. The returned func releases its connections.
func buildLoader(cfg *config.Config) (source.Loader, func(), error) {
	var (
		loader source.Loader
		db     *sql.DB
	)
	switch cfg.Source.Kind {
	case source.KindPostgres:
		var err error
		db, err = source.OpenPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg, err := source.NewPostgresLoader(db, cfg.Postgres)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		loader = pg
	default:
		fl, err := source.NewFileLoader(cfg.Source.FilePath)
		if err != nil {
			return nil, nil, err
		}
		loader = fl
	}

	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}
	if !cfg.Redis.Enabled {
		return loader, closeDB, nil
	}

	client := source.NewRedisClient(cfg.Redis)
	cached, err := source.NewCachedLoader(loader, client, cfg.Redis.Key, cfg.Redis.TTL)
	if err != nil {
		_ = client.Close()
		closeDB()
		return nil, nil, err
	}
	return cached, func() {
		_ = client.Close()
		closeDB()
	}, nil
}

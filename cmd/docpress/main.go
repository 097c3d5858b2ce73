package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"docpress/internal/config"
	"docpress/internal/decks"
	"docpress/internal/http/handlers"
	"docpress/internal/http/server"
	"docpress/internal/infra/logging"
	"docpress/internal/infra/postgres"
	"docpress/internal/infra/proc"
	"docpress/internal/infra/ratelimit"
	"docpress/internal/tokens"
)

func main() {
	cfg := config.Load()
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}

	if err := ensureLogDir(cfg.Logger.File); err != nil {
		logging.Error("Failed to prepare log directory", "error", err)
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.RedisPDFDB,
	})

	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()

	var tokenCache *tokens.Cache
	if cfg.TokenAuthEnabled() {
		dsn, err := postgres.DSN(cfg.Auth.Postgres)
		if err != nil {
			logging.Fatal("Invalid postgres configuration", "error", err)
		}
		repo := postgres.NewTokenRepository(postgres.NewDB(), dsn)
		tokenCache = tokens.NewCache()
		reloader := tokens.NewReloader(repo, tokenCache, time.Duration(cfg.Auth.TokenReloadInterval))
		// A failed first load is not fatal: the cache reports not ready and
		// the reloader keeps retrying, so auth recovers with the database.
		if err := reloader.LoadOnce(reloadCtx); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		reloader.Start(reloadCtx)
	}

	documents, err := handlers.NewDocumentService(cfg, rdb)
	if err != nil {
		logging.Fatal("PDF rendering unavailable", "error", err)
	}

	deckStore := decks.NewStore(decks.Limits{
		MaxDecks:         cfg.Limits.MaxDecks,
		MaxSlidesPerDeck: cfg.Limits.MaxDeckSlides,
	})
	procs := proc.NewManager()

	app := server.New(server.Deps{
		Config:    cfg,
		Documents: documents,
		Decks:     deckStore,
		Procs:     procs,
		Tokens:    tokenCache,
		LimiterStore: ratelimit.NewStore(ratelimit.RedisConfig{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.RedisRateDB,
		}),
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed

	stopReload()
	procs.StopAll()
	documents.Close()
	_ = rdb.Close()
}

// ensureLogDir creates the directory of the log file when the path names one.
// Paths in the current directory need no preparation.
func ensureLogDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

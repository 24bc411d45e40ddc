package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	mediawikiadapter "github.com/talkwatch/talkwatch/internal/adapter/driven/mediawiki"
	sqliteadapter "github.com/talkwatch/talkwatch/internal/adapter/driven/sqlite"
	httphandler "github.com/talkwatch/talkwatch/internal/adapter/driving/http"
	"github.com/talkwatch/talkwatch/internal/application"
	"github.com/talkwatch/talkwatch/internal/config"
	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/extract"
	"github.com/talkwatch/talkwatch/internal/reconcile"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"api_url", cfg.APIURL,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"username", cfg.Username,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	pageStore := sqliteadapter.NewPageRepo(db)
	revisionStore := sqliteadapter.NewRevisionRepo(db)
	visitStore := sqliteadapter.NewVisitRepo(db)
	subscriptionStore := sqliteadapter.NewSubscriptionRepo(db)
	wikiClient := mediawikiadapter.NewClient(cfg.APIURL, slog.Default())

	// 6. Seed the watchlist, if one exists.
	watchlist, err := config.LoadWatchlist(cfg.WatchlistPath)
	if err != nil {
		return err
	}
	for _, title := range watchlist.Pages {
		page := model.Page{Title: title, AddedAt: time.Now().UTC()}
		if err := pageStore.Upsert(ctx, page); err != nil {
			return err
		}
	}
	for _, author := range watchlist.MutedAuthors {
		if err := subscriptionStore.Mute(ctx, author); err != nil {
			return err
		}
	}
	if len(watchlist.Pages) > 0 || len(watchlist.MutedAuthors) > 0 {
		slog.Info("watchlist seeded", "pages", len(watchlist.Pages), "muted", len(watchlist.MutedAuthors))
	}

	// 7. Create and start the extraction pool and check service.
	pool := application.NewExtractPool(extract.NewParser(), runtime.GOMAXPROCS(0))
	pool.Start(ctx)

	weights := reconcile.DefaultWeights()
	if cfg.MatchThreshold > 0 {
		weights.Threshold = cfg.MatchThreshold
	}

	checkSvc := application.NewCheckService(
		wikiClient,
		pageStore,
		revisionStore,
		visitStore,
		subscriptionStore,
		pool,
		application.NewRelevance(cfg.Username),
		weights,
		cfg.PollInterval,
	)
	go checkSvc.Start(ctx)

	// 8. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(pageStore, subscriptionStore, checkSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("talkwatch started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with a drain timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	return nil
}

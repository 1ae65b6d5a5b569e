package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/antigravity/internal/adapter/driven/oembed"
	sqliteadapter "github.com/ericfisherdev/antigravity/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/antigravity/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/antigravity/internal/adapter/driving/web"
	"github.com/ericfisherdev/antigravity/internal/application"
	"github.com/ericfisherdev/antigravity/internal/config"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"job_duration", cfg.JobDuration,
		"queue_size", cfg.QueueSize,
		"activation_policy", cfg.ActivationPolicy,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
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
	schemaVersion, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", schemaVersion)

	// 5. Wire adapters.
	kvStore := sqliteadapter.NewKVRepo(db)
	jobStore := sqliteadapter.NewJobRepo(db)

	var resolver driven.SourceResolver
	if cfg.HasSourceResolver() {
		resolver = oembed.NewClient(cfg.OEmbedEndpoint)
		slog.Info("source resolver enabled", "endpoint", cfg.OEmbedEndpoint)
	}

	// 6. Load the key registry once at startup.
	keys := application.NewKeyRegistry(kvStore, cfg.ActivationPolicy, slog.Default())
	creds, err := keys.Load(ctx)
	if err != nil {
		return err
	}
	slog.Info("key registry loaded", "credentials", len(creds))

	unsubscribe := keys.Subscribe(logActiveCredential)
	defer unsubscribe()

	// 7. Create the job service, fail jobs a previous process left behind, and
	// start the worker.
	jobSvc := application.NewJobService(jobStore, keys, resolver, application.JobServiceConfig{
		Duration:  cfg.JobDuration,
		ResultURL: cfg.ResultURL,
		QueueSize: cfg.QueueSize,
	}, slog.Default())

	recovered, err := jobSvc.RecoverInterrupted(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		slog.Warn("failed jobs interrupted by restart", "count", recovered)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		jobSvc.Start(ctx)
	}()

	// 8. Create HTTP handler and register API routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(keys, jobSvc, slog.Default()))

	// 8b. Create web handler and register GUI routes.
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(keys, jobSvc, slog.Default()))

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

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
			stop()
		}
	}()

	slog.Info("antigravity started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. The worker records its running job as interrupted before the
	// database closes.
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("job worker did not stop before shutdown deadline")
	}

	slog.Info("shutdown complete")
	return nil
}

// logActiveCredential reports which credential new jobs will be attributed to.
func logActiveCredential(creds []model.Credential) {
	for _, c := range creds {
		if c.IsActive {
			slog.Info("active credential", "id", c.ID, "provider", c.Provider, "name", c.Name)
			return
		}
	}
	slog.Info("no active credential", "credentials", len(creds))
}

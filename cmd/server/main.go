package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tablebuilder/internal/app"
	"tablebuilder/internal/config"
	internaldb "tablebuilder/internal/db"
	"tablebuilder/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// writeDB serializes metastore writes; readDB serves concurrent reads.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, cfg.ReadPoolSize)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	migrated, err := internaldb.RunMigrations(ctx, writeDB)
	if err != nil {
		return fmt.Errorf("migrate metastore: %w", err)
	}
	logger.Info("metastore ready", "path", cfg.MetaDBPath, "version", migrated.Version, "applied", len(migrated.Applied))

	data, err := internaldb.OpenDataStore(ctx, cfg.DataDriver, cfg.DataDSN, writeDB, readDB)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer data.Close()
	logger.Info("data store ready", "driver", data.Dialect.Name(), "shared_with_metastore", data.Shared)

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Data:    data,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	validator, err := middleware.NewValidator(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth validator: %w", err)
	}

	if application.Drift != nil {
		application.Drift.Start()
		defer application.Drift.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           application.Router(ctx, validator),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "tls", cfg.TLSCertFile != "")
		logger.Info("try: curl " + exampleURL(cfg.ListenAddr, cfg.TLSCertFile != "") + "/v1/tables")
		var err error
		if cfg.TLSCertFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// exampleURL turns a listen address into a base URL for log hints.
// Wildcard and empty hosts become localhost.
func exampleURL(listenAddr string, tls bool) string {
	scheme := "http"
	if tls {
		scheme = "https"
	}

	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		addr = ":8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return scheme + "://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// Package app provides application-level wiring and dependency injection
// for the tablebuilder server and CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tablebuilder/internal/api"
	"tablebuilder/internal/config"
	internaldb "tablebuilder/internal/db"
	"tablebuilder/internal/db/repository"
	"tablebuilder/internal/engine"
	"tablebuilder/internal/middleware"
	"tablebuilder/internal/service/table"
)

// Deps holds the external dependencies that main() must provide.
// These are things the app package cannot (or should not) create itself:
// database handles, config, and the data store.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB // metastore write pool
	ReadDB  *sql.DB // metastore read pool
	Data    *internaldb.DataStore
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Registry *table.Registry
	Audit    *repository.AuditRepo
	Executor *engine.Executor
	// Drift is nil when scheduled drift checks are disabled.
	Drift *table.DriftScheduler

	cfg    *config.Config
	logger *slog.Logger
}

// New wires repositories, the executor, the row store and the registry, and
// loads the table definitions from the metastore.
func New(ctx context.Context, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// === Repositories (write-pool) ===
	tableRepo := repository.NewTableRepo(deps.WriteDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)

	// === Data store ===
	exec := engine.NewExecutor(deps.Data.Write, deps.Data.Dialect, deps.Data.Shared, logger.With("component", "executor"))
	rows := engine.NewRowStore(deps.Data.Write, deps.Data.Read, deps.Data.Dialect)

	// === Registry ===
	reg := table.NewRegistry(tableRepo, exec, rows, auditRepo, logger.With("component", "registry"))
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}

	a := &App{
		Registry: reg,
		Audit:    auditRepo,
		Executor: exec,
		cfg:      deps.Cfg,
		logger:   logger,
	}

	if deps.Cfg != nil && deps.Cfg.DriftCheckEnabled() {
		sched, err := table.NewDriftScheduler(reg, deps.Cfg.DriftCheckSchedule, logger.With("component", "drift"))
		if err != nil {
			return nil, fmt.Errorf("drift scheduler: %w", err)
		}
		a.Drift = sched
	}
	return a, nil
}

// Router builds the HTTP handler: request tracing, logging, recovery, CORS,
// rate limiting, and the /v1 API behind the auth middleware. ctx bounds
// background work owned by the middleware.
func (a *App) Router(ctx context.Context, validator middleware.JWTValidator) http.Handler {
	cfg := a.cfg
	if cfg == nil {
		cfg = &config.Config{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(a.logger.With("component", "http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	// Public endpoints: no auth required
	r.Get("/healthz", api.Health)

	handler := api.NewHandler(a.Registry, a.Audit, a.logger.With("component", "api"))
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
			Validator: validator,
			NameClaim: cfg.Auth.NameClaim,
		}))
		handler.Routes(r)
	})
	return r
}

// Package api exposes the table registry over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tablebuilder/internal/domain"
	"tablebuilder/internal/service/table"
)

// TableService is the registry surface the handlers use.
type TableService interface {
	CreateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error)
	UpdateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error)
	DeleteTable(ctx context.Context, name string) error
	GetTable(ctx context.Context, name string) (*domain.TableDefinition, error)
	ListTables(ctx context.Context, page domain.PageRequest) ([]domain.TableDefinition, int64, error)
	InsertRow(ctx context.Context, table string, fields map[string]any) (domain.Row, error)
	ListRows(ctx context.Context, table string, page domain.PageRequest) ([]domain.Row, int64, error)
	CheckDrift(ctx context.Context, table string) (*table.DriftReport, error)
	CheckAllDrift(ctx context.Context) ([]table.DriftReport, error)
}

// AuditLister reads the audit log.
type AuditLister interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error)
}

// Compile-time check.
var _ TableService = (*table.Registry)(nil)

// Handler serves the /v1 API.
type Handler struct {
	tables TableService
	audit  AuditLister
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(tables TableService, audit AuditLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{tables: tables, audit: audit, logger: logger}
}

// Routes mounts the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.listTables)
		r.Post("/", h.createTable)
		r.Route("/{tableName}", func(r chi.Router) {
			r.Get("/", h.getTable)
			r.Put("/", h.updateTable)
			r.Delete("/", h.deleteTable)
			r.Get("/rows", h.listRows)
			r.Post("/rows", h.insertRow)
			r.Get("/drift", h.checkDrift)
		})
	})
	r.Get("/drift", h.checkAllDrift)
	r.Get("/audit", h.listAudit)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"tablebuilder/internal/db/dbstore"
	"tablebuilder/internal/db/mapper"
	"tablebuilder/internal/domain"
)

// Compile-time check.
var _ domain.AuditRepository = (*AuditRepo)(nil)

type AuditRepo struct {
	q  *dbstore.Queries
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{q: dbstore.New(db), db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.q.InsertAuditLog(ctx, mapper.AuditEntryToDBParams(e))
}

func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	f := mapper.AuditFilterToDB(filter)

	total, err := r.q.CountAuditLogs(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.ListAuditLogs(ctx, dbstore.ListAuditLogsParams{
		AuditLogFilter: f,
		Limit:          int64(filter.Page.Limit()),
		Offset:         int64(filter.Page.Offset()),
	})
	if err != nil {
		return nil, 0, err
	}

	entries := make([]domain.AuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = *mapper.AuditEntryFromDB(row)
	}
	return entries, total, nil
}

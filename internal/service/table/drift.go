package table

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tablebuilder/internal/domain"
)

// DriftKind classifies a difference between a definition and its physical table.
type DriftKind string

// Drift kinds.
const (
	DriftMissingTable     DriftKind = "missing_table"
	DriftMissingColumn    DriftKind = "missing_column"
	DriftUnexpectedColumn DriftKind = "unexpected_column"
	DriftTypeMismatch     DriftKind = "type_mismatch"
)

// Drift is one difference found by a drift check.
type Drift struct {
	Kind     DriftKind `json:"kind"`
	Column   string    `json:"column,omitempty"`
	Expected string    `json:"expected,omitempty"`
	Actual   string    `json:"actual,omitempty"`
}

// DriftReport is the result of checking one table.
type DriftReport struct {
	Table     string    `json:"table"`
	InSync    bool      `json:"in_sync"`
	Drifts    []Drift   `json:"drifts"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckDrift compares the definition of table with the physical table.
func (r *Registry) CheckDrift(ctx context.Context, table string) (*DriftReport, error) {
	release, err := r.locks.RLock(ctx, table)
	if err != nil {
		return nil, err
	}
	defer release()

	def, ok := r.lookup(table)
	if !ok {
		return nil, domain.ErrNotFound("table %q not found", table)
	}

	report := &DriftReport{Table: table, Drifts: []Drift{}, CheckedAt: time.Now().UTC()}
	physical, err := r.exec.DescribeTable(ctx, table)
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		report.Drifts = append(report.Drifts, Drift{Kind: DriftMissingTable})
		return report, nil
	}
	if err != nil {
		return nil, err
	}

	report.Drifts = compareColumns(def.Columns, physical)
	report.InSync = len(report.Drifts) == 0
	return report, nil
}

// CheckAllDrift checks every known table, ordered by name.
func (r *Registry) CheckAllDrift(ctx context.Context) ([]DriftReport, error) {
	r.mu.RLock()
	names := make([]string, 0, len(r.cache))
	for n := range r.cache {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	reports := make([]DriftReport, 0, len(names))
	for _, n := range names {
		rep, err := r.CheckDrift(ctx, n)
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			continue // dropped meanwhile
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, nil
}

func compareColumns(logical []domain.ColumnDefinition, physical []domain.PhysicalColumn) []Drift {
	byName := make(map[string]domain.PhysicalColumn, len(physical))
	for _, p := range physical {
		byName[p.Name] = p
	}

	drifts := []Drift{}
	for _, c := range logical {
		p, ok := byName[c.Name]
		if !ok {
			drifts = append(drifts, Drift{Kind: DriftMissingColumn, Column: c.Name, Expected: string(c.Type)})
			continue
		}
		if p.Logical != c.Type {
			drifts = append(drifts, Drift{Kind: DriftTypeMismatch, Column: c.Name, Expected: string(c.Type), Actual: p.Type})
		}
		delete(byName, c.Name)
	}
	delete(byName, domain.RowIDColumn)

	extra := make([]string, 0, len(byName))
	for n := range byName {
		extra = append(extra, n)
	}
	sort.Strings(extra)
	for _, n := range extra {
		drifts = append(drifts, Drift{Kind: DriftUnexpectedColumn, Column: n, Actual: byName[n].Type})
	}
	return drifts
}

// DriftScheduler runs CheckAllDrift on a cron schedule and logs every table
// that is out of sync.
type DriftScheduler struct {
	cron     *cron.Cron
	registry *Registry
	logger   *slog.Logger

	mu   sync.Mutex
	last []DriftReport
}

// NewDriftScheduler creates a scheduler for the given cron spec.
func NewDriftScheduler(registry *Registry, spec string, logger *slog.Logger) (*DriftScheduler, error) {
	s := &DriftScheduler{
		cron:     cron.New(),
		registry: registry,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, domain.ErrValidation("invalid drift check schedule %q: %v", spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *DriftScheduler) Start() {
	s.cron.Start()
	s.logger.Info("drift scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *DriftScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("drift scheduler stopped")
}

// LastReports returns the reports of the most recent run.
func (s *DriftScheduler) LastReports() []DriftReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DriftReport(nil), s.last...)
}

func (s *DriftScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reports, err := s.registry.CheckAllDrift(ctx)
	if err != nil {
		s.logger.Warn("drift check failed", "error", err)
		return
	}

	drifted := 0
	for _, rep := range reports {
		if rep.InSync {
			continue
		}
		drifted++
		s.logger.Warn("table drifted from its definition", "table", rep.Table, "drifts", rep.Drifts)
	}
	s.logger.Info("drift check finished", "tables", len(reports), "drifted", drifted)

	s.mu.Lock()
	s.last = reports
	s.mu.Unlock()
}

package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"tablebuilder/internal/app"
	"tablebuilder/internal/config"
	internaldb "tablebuilder/internal/db"
)

// session is an open metastore and data store with the registry wired on top.
type session struct {
	cfg     *config.Config
	writeDB *sql.DB
	readDB  *sql.DB
	data    *internaldb.DataStore
	app     *app.App
}

// loadConfig reads the store settings from the env file and environment,
// then applies flag overrides.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadStoreFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.metaDB != "" {
		cfg.MetaDBPath = opts.metaDB
	}
	if opts.dataDriver != "" {
		cfg.DataDriver = opts.dataDriver
		cfg.DataDSN = ""
	}
	if opts.dataDSN != "" {
		cfg.DataDSN = opts.dataDSN
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openMetastore opens the metastore pools and brings the schema up to date.
func openMetastore(ctx context.Context, cfg *config.Config) (writeDB, readDB *sql.DB, res *internaldb.MigrationResult, err error) {
	writeDB, readDB, err = internaldb.OpenSQLitePair(cfg.MetaDBPath, cfg.ReadPoolSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open metastore: %w", err)
	}
	if res, err = internaldb.RunMigrations(ctx, writeDB); err != nil {
		_ = readDB.Close()
		_ = writeDB.Close()
		return nil, nil, nil, fmt.Errorf("migrate metastore: %w", err)
	}
	return writeDB, readDB, res, nil
}

func openSession(ctx context.Context, opts *globalOptions, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(logOut, opts.verbose)

	writeDB, readDB, _, err := openMetastore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, writeDB: writeDB, readDB: readDB}

	s.data, err = internaldb.OpenDataStore(ctx, cfg.DataDriver, cfg.DataDSN, writeDB, readDB)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open data store: %w", err)
	}

	// The CLI never starts the drift scheduler.
	cfg.DriftCheckSchedule = "off"
	s.app, err = app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Data:    s.data,
		Logger:  logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases every pool the session opened.
func (s *session) Close() {
	if s.data != nil {
		_ = s.data.Close()
	}
	_ = s.readDB.Close()
	_ = s.writeDB.Close()
}

// withSession opens a session for the duration of fn.
func withSession(ctx context.Context, opts *globalOptions, logOut io.Writer, fn func(*session) error) error {
	s, err := openSession(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

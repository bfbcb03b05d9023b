// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret is the HS256 secret used when JWT_SECRET is unset outside production.
const DevJWTSecret = "dev-secret-change-in-production"

// Data store drivers accepted in DATA_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
	DriverMySQL  = "mysql"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	// OIDC / JWKS configuration
	IssuerURL      string        // OIDC issuer URL (e.g., https://login.microsoftonline.com/{tenant}/v2.0)
	JWKSURL        string        // Override JWKS URL (if no .well-known discovery)
	JWTSecret      string        // HS256 shared secret for local/dev JWT auth
	Audience       string        // Required JWT audience claim
	AllowedIssuers []string      // Accepted issuers (defaults to [IssuerURL])
	JWKSCacheTTL   time.Duration // JWKS cache duration (default: 1h)
	NameClaim      string        // JWT claim for principal name (default: "email")
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL == "" && a.JWKSURL == "" {
		return fmt.Errorf("at least one of AUTH_ISSUER_URL or AUTH_JWKS_URL must be set")
	}
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// Config holds the configuration of the table builder server and CLI.
type Config struct {
	MetaDBPath        string // path to the SQLite metastore
	DataDriver        string // sqlite (default), duckdb or mysql
	DataDSN           string // data store DSN; must be empty for sqlite
	ReadPoolSize      int    // metastore read pool size (default 4)
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Auth holds identity provider and authentication configuration.
	Auth AuthConfig

	// DriftCheckSchedule is a cron spec for the periodic drift check.
	// "off" disables it.
	DriftCheckSchedule string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DriftCheckEnabled reports whether the periodic drift check should run.
func (c *Config) DriftCheckEnabled() bool {
	return c.DriftCheckSchedule != "" && !strings.EqualFold(c.DriftCheckSchedule, "off")
}

// env reads typed environment variables and keeps the first parse error.
type env struct{ err error }

func (e *env) str(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e *env) float(key string, def float64) float64 {
	v := e.str(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		e.fail(fmt.Errorf("%s must be a non-negative number, got %q", key, v))
		return def
	}
	return f
}

func (e *env) positiveInt(key string, def int) int {
	v := e.str(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		e.fail(fmt.Errorf("%s must be a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.fail(fmt.Errorf("%s must be a positive duration, got %q", key, v))
		return def
	}
	return d
}

func (e *env) list(key string, def []string) []string {
	if l := splitList(os.Getenv(key)); len(l) > 0 {
		return l
	}
	return def
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// LoadFromEnv loads the server configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg, e := loadStore()
	cfg.ListenAddr = orDefault(e.str("LISTEN_ADDR"), ":8080")
	cfg.TLSCertFile = e.str("TLS_CERT_FILE")
	cfg.TLSKeyFile = e.str("TLS_KEY_FILE")
	cfg.AllowInsecureHTTP = strings.EqualFold(e.str("ALLOW_INSECURE_HTTP"), "true")
	cfg.Env = e.str("ENV")
	cfg.RateLimitRPS = e.float("RATE_LIMIT_RPS", 100)
	cfg.RateLimitBurst = e.positiveInt("RATE_LIMIT_BURST", 200)
	cfg.CORSAllowedOrigins = e.list("CORS_ALLOWED_ORIGINS", []string{"*"})
	cfg.DriftCheckSchedule = orDefault(e.str("DRIFT_CHECK_SCHEDULE"), "@every 1h")
	cfg.Auth = AuthConfig{
		IssuerURL:      e.str("AUTH_ISSUER_URL"),
		JWKSURL:        e.str("AUTH_JWKS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Audience:       e.str("AUTH_AUDIENCE"),
		AllowedIssuers: e.list("AUTH_ALLOWED_ISSUERS", nil),
		JWKSCacheTTL:   e.duration("AUTH_JWKS_CACHE_TTL", time.Hour),
		NameClaim:      orDefault(e.str("AUTH_NAME_CLAIM"), "email"),
	}
	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.resolveDataStore(); err != nil {
		return nil, err
	}

	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.Auth.OIDCEnabled() {
		if err := cfg.Auth.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.OIDCEnabled() {
		cfg.Auth.JWTSecret = DevJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure default. Set JWT_SECRET or configure OIDC in production!")
	}

	if cfg.IsProduction() {
		if err := cfg.checkProduction(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// checkProduction rejects insecure defaults when ENV=production.
func (c *Config) checkProduction() error {
	switch {
	case c.Auth.JWTSecret == DevJWTSecret:
		return fmt.Errorf("JWT_SECRET or OIDC must be configured in production (ENV=production)")
	case slices.Contains(c.CORSAllowedOrigins, "*"):
		return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
	case c.TLSCertFile == "" && !c.AllowInsecureHTTP:
		return fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
	}
	return nil
}

// LoadStoreFromEnv loads only the metastore and data store settings. The
// CLI uses it so that server-only settings never block store access.
func LoadStoreFromEnv() (*Config, error) {
	cfg, e := loadStore()
	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.resolveDataStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStore() (*Config, *env) {
	e := &env{}
	cfg := &Config{
		MetaDBPath:   e.str("META_DB_PATH"),
		DataDriver:   strings.ToLower(e.str("DATA_DRIVER")),
		DataDSN:      e.str("DATA_DSN"),
		ReadPoolSize: e.positiveInt("READ_POOL_SIZE", 4),
		LogLevel:     orDefault(e.str("LOG_LEVEL"), "info"),
	}
	return cfg, e
}

// resolveDataStore fills store defaults and checks the driver and DSN agree.
func (c *Config) resolveDataStore() error {
	if c.MetaDBPath == "" {
		c.MetaDBPath = "tablebuilder.sqlite"
	}
	if c.DataDriver == "" {
		c.DataDriver = DriverSQLite
	}

	switch c.DataDriver {
	case DriverSQLite:
		if c.DataDSN != "" {
			return fmt.Errorf("DATA_DSN must be empty when DATA_DRIVER=sqlite (the metastore database holds the data)")
		}
	case DriverDuckDB:
		if c.DataDSN == "" {
			c.DataDSN = "tablebuilder.duckdb"
		}
	case DriverMySQL:
		if c.DataDSN == "" {
			return fmt.Errorf("DATA_DSN is required when DATA_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unsupported DATA_DRIVER %q (expected sqlite, duckdb or mysql)", c.DataDriver)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Environment variables take precedence.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

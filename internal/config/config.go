// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file, an optional .env file and env vars on top.
// - External errors are wrapped with this package's sentinel errors.
package config

// Store backends understood by the repository layer.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":4173".
	Addr string `koanf:"addr"`

	// DataDir holds the JSON documents of the file backend.
	DataDir string `koanf:"data_dir"`

	// StoreBackend is one of file, sqlite, postgres, memory.
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// PostgresURL is the connection string used by the postgres backend.
	PostgresURL string `koanf:"postgres_url"`

	// MaxBodyBytes caps request bodies; larger bodies are rejected with 400.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// LeaderboardLimit is the default number of entries returned by leaderboard reads.
	LeaderboardLimit int `koanf:"leaderboard_limit"`

	// MaxLeaderboardLimit caps the ?limit query parameter.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ScoringBoardCap bounds each track board used for overall scoring.
	ScoringBoardCap int `koanf:"scoring_board_cap"`

	// CoverageWeight scales the penalty for tracks a player has not raced.
	CoverageWeight float64 `koanf:"coverage_weight"`

	// WriterQueueSize bounds pending jobs per document writer.
	WriterQueueSize int `koanf:"writer_queue_size"`

	// DedupeSize bounds the submission id idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StrictIDs rejects identifiers with disallowed characters instead of rewriting them.
	StrictIDs bool `koanf:"strict_ids"`

	// StaticDir is served for non-API paths; empty disables static serving.
	StaticDir string `koanf:"static_dir"`

	// AdminPassword guards POST /api/lock. Empty disables the toggle.
	AdminPassword string `koanf:"admin_password"`

	// LocalUnlockPassword is checked by POST /api/verify-local-unlock.
	LocalUnlockPassword string `koanf:"local_unlock_password"`

	// RateLimitRPS and RateLimitBurst configure the per-client limiter on
	// mutating endpoints. RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Leave it off unless a reverse proxy rewrites those headers.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// EnvFile is loaded into the process environment before env vars are read.
	EnvFile string `koanf:"env_file"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":4173",
		DataDir:             "data",
		StoreBackend:        BackendFile,
		SQLitePath:          "data/polytrack.db",
		MaxBodyBytes:        1_000_000,
		LeaderboardLimit:    100,
		MaxLeaderboardLimit: 500,
		ScoringBoardCap:     500,
		CoverageWeight:      0.15,
		WriterQueueSize:     1024,
		DedupeSize:          10_000,
		StaticDir:           "public",
		RateLimitRPS:        0,
		RateLimitBurst:      30,
		CORSOrigins:         []string{"*"},
		TrustProxyHeaders:   false,
		EnvFile:             ".env",
	}
}

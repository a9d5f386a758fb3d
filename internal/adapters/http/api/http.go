// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/polytrack/internal/app"
	"github.com/okian/polytrack/internal/domain/model"
	"github.com/okian/polytrack/pkg/logger"
)

// Default request limits.
const (
	defaultMaxBodyBytes = 1_000_000
	defaultLimit        = 100
	defaultMaxLimit     = 500
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitRaceResult(ctx context.Context, in service.RaceResultInput) (service.SubmitOutcome, error)
	UpsertTrack(ctx context.Context, in service.TrackInput) (string, error)
	Track(ctx context.Context, trackID string) (model.Track, error)
	ListTracks(ctx context.Context) []model.TrackSummary
	TrackLeaderboard(ctx context.Context, trackID string, limit int) (string, []model.TrackEntry, error)
	OverallLeaderboard(ctx context.Context, limit int) []model.OverallEntry
	LockStatus(ctx context.Context) bool
	SetLock(ctx context.Context, password, action string) (bool, error)
	VerifyLocalUnlock(password string) bool
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the leaderboard API.
type Server struct {
	deps         Dependencies
	maxBodyBytes int64
	defaultLimit int
	maxLimit     int
	limiter      *RateLimiter
	logger       logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:         deps,
		maxBodyBytes: defaultMaxBodyBytes,
		defaultLimit: defaultLimit,
		maxLimit:     defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Register attaches all HTTP routes to r. Unknown /api paths answer 404 JSON.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz")).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats")).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/overall-leaderboard", MetricsMiddleware(s.handleOverallLeaderboard, "overall_leaderboard")).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", MetricsMiddleware(s.handleTrackLeaderboard, "leaderboard")).Methods(http.MethodGet)
	api.HandleFunc("/race-result", MetricsMiddleware(s.limit(s.handleRaceResult), "race_result")).Methods(http.MethodPost)
	api.HandleFunc("/tracks", MetricsMiddleware(s.handleListTracks, "tracks")).Methods(http.MethodGet)
	api.HandleFunc("/tracks", MetricsMiddleware(s.limit(s.handleUpsertTrack), "tracks")).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{trackId}", MetricsMiddleware(s.handleGetTrack, "track")).Methods(http.MethodGet)
	api.HandleFunc("/lock-status", MetricsMiddleware(s.handleLockStatus, "lock_status")).Methods(http.MethodGet)
	api.HandleFunc("/lock", MetricsMiddleware(s.limit(s.handleLock), "lock")).Methods(http.MethodPost)
	api.HandleFunc("/verify-local-unlock", MetricsMiddleware(s.limit(s.handleVerifyLocalUnlock), "verify_local_unlock")).Methods(http.MethodPost)
	api.PathPrefix("/").HandlerFunc(MetricsMiddleware(handleNotFound, "not_found"))
	r.Handle("/api", http.HandlerFunc(MetricsMiddleware(handleNotFound, "not_found")))

	r.MethodNotAllowedHandler = http.HandlerFunc(handleNotFound)
}

// limit applies the rate limiter when one is configured.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(next)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundMessage})
}

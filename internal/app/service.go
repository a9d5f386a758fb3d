// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/polytrack/internal/adapters/repository"
	"github.com/okian/polytrack/internal/domain/dedupe"
	"github.com/okian/polytrack/internal/domain/model"
	"github.com/okian/polytrack/internal/domain/ranking"
	"github.com/okian/polytrack/internal/domain/sanitize"
	"github.com/okian/polytrack/pkg/logger"
	"github.com/okian/polytrack/pkg/metrics"
)

// Field bounds for race results and tracks.
const (
	MaxBlobBytes      = 512 * 1024
	maxReplayHashLen  = 128
	maxCarIDLen       = 64
	maxCarColorsLen   = 64
	maxTitleLen       = 64
	maxAuthorLen      = 32
	maxCategoryLen    = 32
	defaultDedupeSize = 10000

	// maxNumber is the smallest float64 that no longer fits in an int64.
	maxNumber = float64(math.MaxInt64)
)

// Lock actions.
const (
	ActionLock   = "lock"
	ActionUnlock = "unlock"
)

// RaceResultInput is an untrusted race result submission.
type RaceResultInput struct {
	TrackID      string
	UserID       string
	AccountID    string
	Name         string
	TimeMs       float64
	Frames       *float64
	Replay       string
	ReplayHash   string
	CarID        string
	CarColors    string
	SubmissionID string
}

// SubmitOutcome reports where an accepted result placed its submitter.
type SubmitOutcome struct {
	TrackID         string
	Position        int
	LeaderboardSize int
	Duplicate       bool
}

// TrackInput is an untrusted track upsert. The id is taken from TrackID,
// then ID, then Name.
type TrackInput struct {
	TrackID  string
	ID       string
	Name     string
	Title    string
	Author   string
	Category string
	Data     string
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu      sync.RWMutex
	started bool

	store     *repository.Store
	deduper   dedupe.Deduper
	validator sanitize.Validator

	// Configuration
	dedupeSize          int
	boardCap            int
	coverageWeight      float64
	adminPassword       string
	localUnlockPassword string
	now                 func() time.Time

	// Counters reported by GetStats.
	accepted   atomic.Int64
	rejected   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64

	logger logger.Logger
}

// New constructs a Service persisting through store.
func New(store *repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		dedupeSize:     defaultDedupeSize,
		boardCap:       ranking.DefaultBoardCap,
		coverageWeight: ranking.DefaultCoverageWeight,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start loads every document once so corrupt files are reported at boot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	results := repository.Load[model.ResultLog](ctx, s.store, repository.DocResults)
	tracks := repository.Load[model.TrackRegistry](ctx, s.store, repository.DocTracks)
	lock := repository.Load[model.LockState](ctx, s.store, repository.DocLockState)
	metrics.UpdateDocumentRecords(repository.DocResults, results.Len())
	metrics.UpdateDocumentRecords(repository.DocTracks, tracks.Len())

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("results", results.Len()),
		logger.Int("tracks", tracks.Len()),
		logger.Bool("locked", lock.Locked),
		logger.Bool("strictIds", s.validator.Strict),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending writes and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error(ctx, "store close failed", logger.Error(err))
		return fmt.Errorf("close store: %w", err)
	}
	s.logger.Info(ctx, "leaderboard service stopped")
	return nil
}

// SubmitRaceResult validates and appends a race result, then reports the
// submitter's position on the track as of that append.
func (s *Service) SubmitRaceResult(ctx context.Context, in RaceResultInput) (SubmitOutcome, error) {
	r, err := s.buildResult(in)
	if err != nil {
		s.rejected.Add(1)
		metrics.RecordRaceResult("rejected")
		return SubmitOutcome{}, err
	}

	key := ""
	if r.SubmissionID != "" {
		key = dedupe.Key(r.UserID, r.SubmissionID)
	}

	// Duplicates are resolved on the results writer against stored state, so
	// a retry racing an in-flight original waits for its outcome.
	out := SubmitOutcome{TrackID: r.TrackID}
	err = repository.Update[model.ResultLog](ctx, s.store, repository.DocResults, func(log *model.ResultLog) error {
		if key != "" && (s.deduper.Seen(ctx, key) || log.HasSubmission(r.UserID, r.SubmissionID)) {
			out.Position, out.LeaderboardSize = ranking.Position(log.Results, r.TrackID, r.UserID)
			out.Duplicate = true
			return errDuplicate
		}

		prior := 0
		for i := range log.Results {
			if log.Results[i].TrackID == r.TrackID && log.Results[i].UserID == r.UserID {
				prior++
			}
		}
		r.Attempts = prior + 1
		r.Timestamp = s.now().UTC()
		log.Results = append(log.Results, r)

		start := time.Now()
		out.Position, out.LeaderboardSize = ranking.Position(log.Results, r.TrackID, r.UserID)
		metrics.RecordRankingLatency("track", msSince(start))
		return nil
	})
	switch {
	case errors.Is(err, errDuplicate):
		if key != "" {
			s.deduper.Record(ctx, key)
		}
		s.duplicates.Add(1)
		metrics.RecordRaceResult("duplicate")
		return out, nil
	case err != nil:
		s.failed.Add(1)
		metrics.RecordRaceResult("failed")
		s.logger.Error(ctx, "race result not persisted",
			logger.String("trackId", r.TrackID),
			logger.String("userId", r.UserID),
			logger.Error(err),
		)
		return SubmitOutcome{}, err
	}
	if key != "" {
		s.deduper.Record(ctx, key)
	}

	s.accepted.Add(1)
	metrics.RecordRaceResult("accepted")
	metrics.RecordBoardSize(out.LeaderboardSize)
	s.logger.Debug(ctx, "race result accepted",
		logger.String("trackId", r.TrackID),
		logger.String("userId", r.UserID),
		logger.Int64("timeMs", r.TimeMs),
		logger.Int("position", out.Position),
	)
	return out, nil
}

func (s *Service) buildResult(in RaceResultInput) (model.RaceResult, error) {
	trackID, err := s.validator.ID("trackId", in.TrackID)
	if err != nil {
		return model.RaceResult{}, err
	}
	rawUser := in.UserID
	if rawUser == "" {
		rawUser = in.AccountID
	}
	userID, err := s.validator.ID("userId", rawUser)
	if err != nil {
		return model.RaceResult{}, err
	}

	if math.IsNaN(in.TimeMs) || math.IsInf(in.TimeMs, 0) {
		return model.RaceResult{}, sanitize.Invalid("timeMs", reasonPositiveNumber)
	}
	if in.TimeMs >= maxNumber {
		return model.RaceResult{}, sanitize.Invalid("timeMs", reasonTooLarge)
	}
	timeMs := int64(math.Round(in.TimeMs))
	if timeMs <= 0 {
		return model.RaceResult{}, sanitize.Invalid("timeMs", reasonPositiveNumber)
	}

	var frames *int64
	if in.Frames != nil {
		f := *in.Frames
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return model.RaceResult{}, sanitize.Invalid("frames", reasonNonNegative)
		}
		if f >= maxNumber {
			return model.RaceResult{}, sanitize.Invalid("frames", reasonTooLarge)
		}
		n := int64(math.Round(f))
		frames = &n
	}

	if len(in.Replay) > MaxBlobBytes {
		return model.RaceResult{}, sanitize.Invalid("replay", reasonTooLarge)
	}

	submissionID, err := s.validator.OptionalID("submissionId", in.SubmissionID)
	if err != nil {
		return model.RaceResult{}, err
	}

	return model.RaceResult{
		TrackID:      trackID,
		UserID:       userID,
		Name:         sanitize.CleanName(in.Name),
		TimeMs:       timeMs,
		Frames:       frames,
		Replay:       in.Replay,
		ReplayHash:   sanitize.CleanText(in.ReplayHash, maxReplayHashLen),
		CarID:        sanitize.CleanText(in.CarID, maxCarIDLen),
		CarColors:    sanitize.CleanText(in.CarColors, maxCarColorsLen),
		SubmissionID: submissionID,
	}, nil
}

// UpsertTrack creates or overwrites a track registry record.
func (s *Service) UpsertTrack(ctx context.Context, in TrackInput) (string, error) {
	raw := in.TrackID
	if raw == "" {
		raw = in.ID
	}
	if raw == "" {
		raw = in.Name
	}
	trackID, err := s.validator.ID("trackId", raw)
	if err != nil {
		metrics.RecordTrackUpsert("rejected")
		return "", err
	}
	if len(in.Data) > MaxBlobBytes {
		metrics.RecordTrackUpsert("rejected")
		return "", sanitize.Invalid("data", reasonTooLarge)
	}

	t := model.Track{
		TrackID:  trackID,
		Title:    sanitize.CleanText(in.Title, maxTitleLen),
		Author:   sanitize.CleanText(in.Author, maxAuthorLen),
		Category: sanitize.CleanText(in.Category, maxCategoryLen),
		Data:     in.Data,
	}

	kind := "created"
	err = repository.Update[model.TrackRegistry](ctx, s.store, repository.DocTracks, func(reg *model.TrackRegistry) error {
		t.UpdatedAt = s.now().UTC()
		if i := reg.Find(trackID); i >= 0 {
			reg.Tracks[i] = t
			kind = "updated"
			return nil
		}
		reg.Tracks = append(reg.Tracks, t)
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "track not persisted", logger.String("trackId", trackID), logger.Error(err))
		return "", err
	}
	metrics.RecordTrackUpsert(kind)
	s.logger.Debug(ctx, "track saved", logger.String("trackId", trackID), logger.String("kind", kind))
	return trackID, nil
}

// Track returns a single track including its definition.
func (s *Service) Track(ctx context.Context, rawID string) (model.Track, error) {
	trackID, err := s.validator.ID("trackId", rawID)
	if err != nil {
		return model.Track{}, err
	}
	reg := repository.Load[model.TrackRegistry](ctx, s.store, repository.DocTracks)
	i := reg.Find(trackID)
	if i < 0 {
		return model.Track{}, fmt.Errorf("%s: %w", trackID, ErrTrackNotFound)
	}
	return reg.Tracks[i], nil
}

// ListTracks returns every registered track without its definition.
func (s *Service) ListTracks(ctx context.Context) []model.TrackSummary {
	reg := repository.Load[model.TrackRegistry](ctx, s.store, repository.DocTracks)
	out := make([]model.TrackSummary, len(reg.Tracks))
	for i := range reg.Tracks {
		out[i] = reg.Tracks[i].Summary()
	}
	return out
}

// TrackLeaderboard returns the best-time board of a track and the cleaned id.
func (s *Service) TrackLeaderboard(ctx context.Context, rawTrackID string, limit int) (string, []model.TrackEntry, error) {
	trackID, err := s.validator.ID("trackId", rawTrackID)
	if err != nil {
		return "", nil, err
	}
	log := repository.Load[model.ResultLog](ctx, s.store, repository.DocResults)

	start := time.Now()
	entries := ranking.TrackLeaderboard(log.Results, trackID, limit)
	metrics.RecordRankingLatency("track", msSince(start))
	return trackID, entries, nil
}

// OverallLeaderboard returns the cross-track standing.
func (s *Service) OverallLeaderboard(ctx context.Context, limit int) []model.OverallEntry {
	log := repository.Load[model.ResultLog](ctx, s.store, repository.DocResults)
	reg := repository.Load[model.TrackRegistry](ctx, s.store, repository.DocTracks)

	start := time.Now()
	entries := ranking.Overall(log.Results, reg.Tracks, limit,
		ranking.WithBoardCap(s.boardCap),
		ranking.WithCoverageWeight(s.coverageWeight),
	)
	metrics.RecordRankingLatency("overall", msSince(start))
	return entries
}

// LockStatus reports the persisted lock flag.
func (s *Service) LockStatus(ctx context.Context) bool {
	return repository.Load[model.LockState](ctx, s.store, repository.DocLockState).Locked
}

// SetLock applies action when password matches the admin password. It
// returns false without error for a wrong or unconfigured password.
func (s *Service) SetLock(ctx context.Context, password, action string) (bool, error) {
	var locked bool
	switch action {
	case ActionLock:
		locked = true
	case ActionUnlock:
	default:
		metrics.RecordLockChange("invalid")
		return false, ErrInvalidAction
	}

	if !passwordMatches(s.adminPassword, password) {
		metrics.RecordLockChange("denied")
		s.logger.Warn(ctx, "lock change denied", logger.String("action", action))
		return false, nil
	}

	err := repository.Update[model.LockState](ctx, s.store, repository.DocLockState, func(doc *model.LockState) error {
		doc.Locked = locked
		return nil
	})
	if err != nil {
		metrics.RecordLockChange("failed")
		return false, err
	}
	metrics.RecordLockChange(action)
	s.logger.Info(ctx, "lock state changed", logger.Bool("locked", locked))
	return true, nil
}

// VerifyLocalUnlock checks password against the local unlock password.
func (s *Service) VerifyLocalUnlock(password string) bool {
	return passwordMatches(s.localUnlockPassword, password)
}

// passwordMatches compares in constant time. An empty expected value never matches.
func passwordMatches(expected, given string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]any{
		"started":        started,
		"strictIds":      s.validator.Strict,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"boardCap":       s.boardCap,
		"coverageWeight": s.coverageWeight,
		"accepted":       s.accepted.Load(),
		"rejected":       s.rejected.Load(),
		"duplicates":     s.duplicates.Load(),
		"failed":         s.failed.Load(),
	}
	if started {
		log := repository.Load[model.ResultLog](ctx, s.store, repository.DocResults)
		reg := repository.Load[model.TrackRegistry](ctx, s.store, repository.DocTracks)
		stats["results"] = log.Len()
		stats["tracks"] = reg.Len()
		stats["activeTracks"] = len(ranking.ActiveTracks(log.Results, reg.Tracks))
		stats["locked"] = s.LockStatus(ctx)
	}
	return stats
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

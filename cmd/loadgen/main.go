package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/polytrack/internal/domain/ranking"
	"github.com/okian/polytrack/internal/loadgen"
	"github.com/okian/polytrack/pkg/logger"
)

// Default configuration constants.
const (
	defaultResults = 5000
	defaultTracks  = 8
	defaultUsers   = 200
	defaultReplays = 100
	defaultLimit   = 100
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultTimeout = 30 * time.Second
	runTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:4173", "Base URL of the service")
		results  = flag.Int("results", defaultResults, "Number of race results to submit")
		tracks   = flag.Int("tracks", defaultTracks, "Number of distinct tracks")
		users    = flag.Int("users", defaultUsers, "Number of distinct players")
		replays  = flag.Int("replays", defaultReplays, "Submissions re-sent with the same submissionId")
		limit    = flag.Int("limit", defaultLimit, "Entries fetched per board when verifying")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		boardCap = flag.Int("board-cap", ranking.DefaultBoardCap, "Scoring board cap the service runs with")
		weight   = flag.Float64("coverage-weight", ranking.DefaultCoverageWeight, "Coverage weight the service runs with")
		verbose  = flag.Bool("verbose", false, "Log every failed request")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	if *results < 0 || *tracks < 1 || *users < 1 || *workers < 1 || *limit < 1 {
		os.Stderr.WriteString("results must be >= 0; tracks, users, workers and limit must be >= 1\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:        *baseURL,
		Results:        *results,
		Tracks:         *tracks,
		Users:          *users,
		Replays:        *replays,
		Workers:        *workers,
		Limit:          *limit,
		Timeout:        *timeout,
		Verbose:        *verbose,
		BoardCap:       *boardCap,
		CoverageWeight: *weight,
	}
	if _, err := loadgen.Run(ctx, cfg, os.Stdout); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}

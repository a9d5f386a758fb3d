package loadgen

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/polytrack/pkg/logger"
)

const progressInterval = time.Second

// Run checks health, submits generated results and verifies the boards.
// The report is written to out. A non-nil error means the service could not
// be driven or its boards disagree with the local recomputation.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	log := logger.Named("loadgen")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	start := time.Now()

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("results", cfg.Results),
		logger.Int("tracks", cfg.Tracks),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	subs := Generate(cfg)
	stats := &Stats{Generated: len(subs)}
	submit(ctx, cfg, client, subs, stats, log)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("submission interrupted: %w", err)
	}

	report, err := Verify(ctx, cfg, client, subs[:cfg.Results])
	if err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}
	stats.Boards = len(report.Boards)
	stats.Mismatches = report.Mismatches()
	stats.Duration = time.Since(start)

	Render(out, stats, report)
	log.Info(ctx, "load run finished",
		logger.Int64("accepted", stats.Accepted),
		logger.Int64("duplicates", stats.Duplicates),
		logger.Int64("failed", stats.Failed),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
	)

	switch {
	case stats.Failed > 0:
		return stats, fmt.Errorf("%d submissions failed", stats.Failed)
	case stats.Mismatches > 0:
		return stats, fmt.Errorf("%d boards disagree with the expected ranking", stats.Mismatches)
	}
	return stats, nil
}

// submit posts subs with cfg.Workers concurrent workers. Originals go out
// before replays so replays are answered as duplicates.
func submit(ctx context.Context, cfg *Config, client *Client, subs []Submission, stats *Stats, log logger.Logger) {
	send := func(batch []Submission) {
		jobs := make(chan Submission, cfg.Workers*2)
		var wg sync.WaitGroup
		for range cfg.Workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for s := range jobs {
					ack, err := client.Submit(ctx, s)
					atomic.AddInt64(&stats.Submitted, 1)
					switch {
					case err != nil:
						atomic.AddInt64(&stats.Failed, 1)
						if cfg.Verbose {
							log.Warn(ctx, "submission failed", logger.String("submissionId", s.SubmissionID), logger.Error(err))
						}
					case ack.Duplicate:
						atomic.AddInt64(&stats.Duplicates, 1)
					default:
						atomic.AddInt64(&stats.Accepted, 1)
					}
				}
			}()
		}

		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
	feed:
		for _, s := range batch {
			select {
			case <-ctx.Done():
				break feed
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int64("submitted", atomic.LoadInt64(&stats.Submitted)),
					logger.Int("total", len(subs)),
				)
				select {
				case jobs <- s:
				case <-ctx.Done():
					break feed
				}
			case jobs <- s:
			}
		}
		close(jobs)
		wg.Wait()
	}

	send(subs[:cfg.Results])
	send(subs[cfg.Results:])
}

package loadgen

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/okian/polytrack/internal/domain/model"
	"github.com/okian/polytrack/internal/domain/ranking"
)

// Board statuses.
const (
	StatusOK       = "ok"
	StatusMismatch = "mismatch"
	StatusSkipped  = "skipped"
)

const scoreTolerance = 1e-6

// BoardCheck is the verdict for one served board.
type BoardCheck struct {
	Board    string
	Served   int
	Expected int
	Status   string
	Detail   string
}

// Report collects every board verdict of a run.
type Report struct {
	Boards []BoardCheck
}

// Mismatches counts boards that disagree with the expected ranking.
func (r *Report) Mismatches() int {
	n := 0
	for _, b := range r.Boards {
		if b.Status == StatusMismatch {
			n++
		}
	}
	return n
}

// expectedLog turns accepted submissions into the log the service should
// hold for this run.
func expectedLog(subs []Submission) []model.RaceResult {
	base := time.Unix(0, 0).UTC()
	out := make([]model.RaceResult, len(subs))
	for i, s := range subs {
		out[i] = model.RaceResult{
			TrackID:   s.TrackID,
			UserID:    s.UserID,
			Name:      s.Name,
			TimeMs:    s.TimeMs,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}
	}
	return out
}

// Verify fetches every track board touched by subs plus the overall board and
// compares them with ranking computed locally over subs.
func Verify(ctx context.Context, cfg *Config, client *Client, subs []Submission) (*Report, error) {
	results := expectedLog(subs)
	report := &Report{}

	tracks := ranking.ActiveTracks(results, nil)
	for _, trackID := range tracks {
		served, err := client.TrackLeaderboard(ctx, trackID, cfg.Limit)
		if err != nil {
			return nil, err
		}
		want := ranking.TrackLeaderboard(results, trackID, cfg.Limit)
		report.Boards = append(report.Boards, compareTrack(trackID, served, want))
	}

	served, err := client.OverallLeaderboard(ctx, cfg.Limit)
	if err != nil {
		return nil, err
	}
	opts := []ranking.Option{ranking.WithCoverageWeight(cfg.CoverageWeight)}
	if cfg.BoardCap > 0 {
		opts = append(opts, ranking.WithBoardCap(cfg.BoardCap))
	}
	want := ranking.Overall(results, nil, cfg.Limit, opts...)
	report.Boards = append(report.Boards, compareOverall(served, want, subs, len(tracks)))
	return report, nil
}

func compareTrack(trackID string, served, want []model.TrackEntry) BoardCheck {
	c := BoardCheck{Board: trackID, Served: len(served), Expected: len(want), Status: StatusOK}
	if len(served) != len(want) {
		c.Status, c.Detail = StatusMismatch, "entry count differs"
		return c
	}
	for i := range want {
		got, exp := served[i], want[i]
		if got.Rank != exp.Rank || got.UserID != exp.UserID || got.TimeMs != exp.TimeMs {
			c.Status = StatusMismatch
			c.Detail = fmt.Sprintf("rank %d: got %s/%dms, want %s/%dms", exp.Rank, got.UserID, got.TimeMs, exp.UserID, exp.TimeMs)
			return c
		}
	}
	return c
}

// compareOverall skips the check when the service holds players or tracks
// from outside this run, since their results shift every score.
func compareOverall(served, want []model.OverallEntry, subs []Submission, tracks int) BoardCheck {
	c := BoardCheck{Board: "overall", Served: len(served), Expected: len(want), Status: StatusOK}

	ours := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		ours[s.UserID] = struct{}{}
	}
	foreign := slices.IndexFunc(served, func(e model.OverallEntry) bool {
		_, ok := ours[e.UserID]
		return !ok
	})
	if foreign >= 0 || (len(served) > 0 && served[0].TotalTracks != tracks) {
		c.Status, c.Detail = StatusSkipped, "service holds results from other runs"
		return c
	}

	if len(served) != len(want) {
		c.Status, c.Detail = StatusMismatch, "entry count differs"
		return c
	}
	for i := range want {
		got, exp := served[i], want[i]
		if got.UserID != exp.UserID || got.RaceCount != exp.RaceCount || math.Abs(got.Score-exp.Score) > scoreTolerance {
			c.Status = StatusMismatch
			c.Detail = fmt.Sprintf("rank %d: got %s/%.6f, want %s/%.6f", exp.Rank, got.UserID, got.Score, exp.UserID, exp.Score)
			return c
		}
	}
	return c
}

// Package ranking derives leaderboards from the race result log.
//
// Everything here is a pure function of its inputs: callers pass a snapshot
// of the log and get freshly computed boards back. Nothing is cached.
package ranking

import (
	"sort"

	"github.com/okian/polytrack/internal/domain/model"
)

// candidate is a result together with its position in the log.
type candidate struct {
	idx int
	r   *model.RaceResult
}

// before orders results by timeMs, then submission order (timestamp, then
// log position), then userId. The same comparator picks a user's best result
// and orders the board, so an exact tie always goes to the earlier submission.
func before(a, b candidate) bool {
	if a.r.TimeMs != b.r.TimeMs {
		return a.r.TimeMs < b.r.TimeMs
	}
	if !a.r.Timestamp.Equal(b.r.Timestamp) {
		return a.r.Timestamp.Before(b.r.Timestamp)
	}
	if a.idx != b.idx {
		return a.idx < b.idx
	}
	return a.r.UserID < b.r.UserID
}

// bestPerUser keeps each user's best candidate from cs and returns them sorted.
func bestPerUser(cs []candidate) []candidate {
	best := make(map[string]int, len(cs))
	kept := make([]candidate, 0, len(cs))
	for _, c := range cs {
		i, ok := best[c.r.UserID]
		if !ok {
			best[c.r.UserID] = len(kept)
			kept = append(kept, c)
			continue
		}
		if before(c, kept[i]) {
			kept[i] = c
		}
	}
	sort.Slice(kept, func(i, j int) bool { return before(kept[i], kept[j]) })
	return kept
}

func toEntries(kept []candidate, limit int) []model.TrackEntry {
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	out := make([]model.TrackEntry, len(kept))
	for i, c := range kept {
		out[i] = model.TrackEntry{
			Rank:      i + 1,
			UserID:    c.r.UserID,
			Name:      c.r.Name,
			TimeMs:    c.r.TimeMs,
			Attempts:  c.r.Attempts,
			UpdatedAt: c.r.Timestamp,
		}
	}
	return out
}

// TrackLeaderboard returns the best-time board of trackID: one entry per
// user carrying the attempts and timestamp of the result that set their best
// time. limit <= 0 returns every entry.
func TrackLeaderboard(results []model.RaceResult, trackID string, limit int) []model.TrackEntry {
	var cs []candidate
	for i := range results {
		if results[i].TrackID == trackID {
			cs = append(cs, candidate{idx: i, r: &results[i]})
		}
	}
	return toEntries(bestPerUser(cs), limit)
}

// Position returns the 1-based rank of userID on trackID and the board size.
// Rank is 0 when the user has no result on the track.
func Position(results []model.RaceResult, trackID, userID string) (rank, size int) {
	board := TrackLeaderboard(results, trackID, 0)
	for _, e := range board {
		if e.UserID == userID {
			return e.Rank, len(board)
		}
	}
	return 0, len(board)
}

package ranking

import (
	"math"
	"sort"

	"github.com/okian/polytrack/internal/domain/model"
)

// Default overall scoring parameters.
const (
	DefaultBoardCap       = 500
	DefaultCoverageWeight = 0.15

	scoreDecimals = 1e6
)

// Option applies a configuration option to overall scoring.
type Option func(*options)

type options struct {
	boardCap       int
	coverageWeight float64
}

// WithBoardCap bounds each track board used for scoring. Players ranked past
// the cap do not contribute to the overall standing.
func WithBoardCap(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.boardCap = n
		}
	}
}

// WithCoverageWeight sets the penalty applied for each missing track share.
func WithCoverageWeight(w float64) Option {
	return func(o *options) {
		if w >= 0 {
			o.coverageWeight = w
		}
	}
}

// standing accumulates one player's appearances across tracks.
type standing struct {
	userID    string
	name      string
	nameAt    candidate
	raceCount int
	scoreSum  float64
	score     float64
}

// ActiveTracks returns the sorted union of registry track ids and track ids
// referenced by results.
func ActiveTracks(results []model.RaceResult, tracks []model.Track) []string {
	set := make(map[string]struct{}, len(tracks))
	for i := range tracks {
		set[tracks[i].TrackID] = struct{}{}
	}
	for i := range results {
		set[results[i].TrackID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Overall computes the cross-track standing.
//
// For each active track the board (capped) yields a percentile rank/size per
// player. A player's score is the mean of their percentiles plus
// (1 - raceCount/activeTracks) * coverageWeight, rounded to 6 decimals.
// Lower is better; ties go to the player with more races, then by userId.
func Overall(results []model.RaceResult, tracks []model.Track, limit int, opts ...Option) []model.OverallEntry {
	o := options{boardCap: DefaultBoardCap, coverageWeight: DefaultCoverageWeight}
	for _, opt := range opts {
		opt(&o)
	}

	active := ActiveTracks(results, tracks)
	byTrack := make(map[string][]candidate, len(active))
	for i := range results {
		id := results[i].TrackID
		byTrack[id] = append(byTrack[id], candidate{idx: i, r: &results[i]})
	}

	players := make(map[string]*standing)
	for _, trackID := range active {
		board := bestPerUser(byTrack[trackID])
		if len(board) > o.boardCap {
			board = board[:o.boardCap]
		}
		size := float64(max(len(board), 1))
		for pos, c := range board {
			p, ok := players[c.r.UserID]
			if !ok {
				p = &standing{userID: c.r.UserID, name: c.r.Name, nameAt: c}
				players[c.r.UserID] = p
			} else if c.r.Timestamp.After(p.nameAt.r.Timestamp) {
				p.name, p.nameAt = c.r.Name, c
			}
			p.raceCount++
			p.scoreSum += float64(pos+1) / size
		}
	}

	total := float64(len(active))
	list := make([]*standing, 0, len(players))
	for _, p := range players {
		avg := p.scoreSum / float64(max(p.raceCount, 1))
		coverage := (1 - float64(p.raceCount)/total) * o.coverageWeight
		p.score = round6(avg + coverage)
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if a.raceCount != b.raceCount {
			return a.raceCount > b.raceCount
		}
		return a.userID < b.userID
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]model.OverallEntry, len(list))
	for i, p := range list {
		out[i] = model.OverallEntry{
			Rank:        i + 1,
			UserID:      p.userID,
			Name:        p.name,
			Score:       p.score,
			RaceCount:   p.raceCount,
			TotalTracks: len(active),
		}
	}
	return out
}

func round6(x float64) float64 {
	return math.Round(x*scoreDecimals) / scoreDecimals
}

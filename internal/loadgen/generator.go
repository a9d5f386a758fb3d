package loadgen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Lap times are drawn from [minLapMs, minLapMs+lapSpreadMs).
const (
	minLapMs    = 30_000
	lapSpreadMs = 90_000
)

// randInt returns a uniform value in [0, n).
func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// Generate builds cfg.Results submissions spread over cfg.Tracks tracks and
// cfg.Users players, followed by cfg.Replays re-sends of earlier ones. Track
// ids carry a per-run prefix so boards from earlier runs do not interfere.
// Times never repeat within a track, which keeps the expected ranks
// independent of the order the server receives submissions in.
func Generate(cfg *Config) []Submission {
	run := uuid.NewString()[:8]

	tracks := make([]string, cfg.Tracks)
	for i := range tracks {
		tracks[i] = fmt.Sprintf("lg-%s-%d", run, i)
	}
	users := make([]string, cfg.Users)
	for i := range users {
		users[i] = uuid.NewString()
	}

	spread := max(lapSpreadMs, 2*cfg.Results)
	used := make(map[string]map[int64]struct{}, len(tracks))

	out := make([]Submission, 0, cfg.Results+cfg.Replays)
	for range cfg.Results {
		track := tracks[randInt(len(tracks))]
		if used[track] == nil {
			used[track] = make(map[int64]struct{})
		}
		t := int64(minLapMs + randInt(spread))
		for _, taken := used[track][t]; taken; _, taken = used[track][t] {
			t = int64(minLapMs + randInt(spread))
		}
		used[track][t] = struct{}{}

		u := randInt(len(users))
		out = append(out, Submission{
			TrackID:      track,
			UserID:       users[u],
			Name:         fmt.Sprintf("Driver %d", u),
			TimeMs:       t,
			SubmissionID: uuid.NewString(),
		})
	}
	for i := 0; i < cfg.Replays && cfg.Results > 0; i++ {
		out = append(out, out[randInt(cfg.Results)])
	}
	return out
}

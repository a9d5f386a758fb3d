// Package loadgen drives a running leaderboard service with synthetic race
// results and checks the boards it serves against a local recomputation.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the service
	Results int           // Number of race results to submit
	Tracks  int           // Number of distinct tracks
	Users   int           // Number of distinct players
	Replays int           // Submissions re-sent with the same submissionId
	Workers int           // Number of concurrent workers
	Limit   int           // Entries fetched per board when verifying
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every failed request

	// Scoring parameters the service runs with; the overall board is only
	// comparable when these match.
	BoardCap       int
	CoverageWeight float64
}

// Submission is the request body of POST /api/race-result.
type Submission struct {
	TrackID      string `json:"trackId"`
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	TimeMs       int64  `json:"timeMs"`
	SubmissionID string `json:"submissionId"`
}

// Ack is the response body of POST /api/race-result.
type Ack struct {
	Success         bool   `json:"success"`
	TrackID         string `json:"trackId"`
	Position        int    `json:"position"`
	LeaderboardSize int    `json:"leaderboardSize"`
	Duplicate       bool   `json:"duplicate"`
	Error           string `json:"error"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int64
	Accepted   int64
	Duplicates int64
	Failed     int64
	Boards     int
	Mismatches int
	Duration   time.Duration
}

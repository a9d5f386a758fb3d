// Package model contains domain models passed between layers.
package model

import "time"

// RaceResult is one accepted submission. Results are appended to the log and
// never edited afterwards.
type RaceResult struct {
	TrackID      string    `json:"trackId"`
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	TimeMs       int64     `json:"timeMs"`
	Attempts     int       `json:"attempts"`
	Frames       *int64    `json:"frames,omitempty"`
	Replay       string    `json:"replay,omitempty"`
	ReplayHash   string    `json:"replayHash,omitempty"`
	CarID        string    `json:"carId,omitempty"`
	CarColors    string    `json:"carColors,omitempty"`
	SubmissionID string    `json:"submissionId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Track is a registry record keyed by TrackID.
type Track struct {
	TrackID   string    `json:"trackId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Data      string    `json:"data,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrackSummary is a Track without its definition blob.
type TrackSummary struct {
	TrackID   string    `json:"trackId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary drops the track definition.
func (t Track) Summary() TrackSummary {
	return TrackSummary{
		TrackID:   t.TrackID,
		Title:     t.Title,
		Author:    t.Author,
		Category:  t.Category,
		UpdatedAt: t.UpdatedAt,
	}
}

// TrackEntry is a derived row of a track leaderboard.
type TrackEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	TimeMs    int64     `json:"timeMs"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OverallEntry is a derived row of the cross-track standing.
type OverallEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	RaceCount   int     `json:"raceCount"`
	TotalTracks int     `json:"totalTracks"`
}

package api

import (
	"encoding/json"
	"math"
	"net/http"

	service "github.com/okian/polytrack/internal/app"
	"github.com/okian/polytrack/pkg/logger"
)

// raceResultRequest mirrors the OpenAPI schema for POST /api/race-result.
// Numbers are taken as json.Number so quoted numerals are accepted too.
type raceResultRequest struct {
	TrackID      string       `json:"trackId"`
	UserID       string       `json:"userId"`
	AccountID    string       `json:"accountId"`
	Name         string       `json:"name"`
	TimeMs       json.Number  `json:"timeMs"`
	Frames       *json.Number `json:"frames"`
	Replay       string       `json:"replay"`
	ReplayHash   string       `json:"replayHash"`
	CarID        string       `json:"carId"`
	CarColors    string       `json:"carColors"`
	SubmissionID string       `json:"submissionId"`
}

type raceResultResponse struct {
	Success         bool   `json:"success"`
	TrackID         string `json:"trackId"`
	Position        int    `json:"position"`
	LeaderboardSize int    `json:"leaderboardSize"`
	Duplicate       bool   `json:"duplicate,omitempty"`
}

func (req *raceResultRequest) input() service.RaceResultInput {
	in := service.RaceResultInput{
		TrackID:      req.TrackID,
		UserID:       req.UserID,
		AccountID:    req.AccountID,
		Name:         req.Name,
		TimeMs:       number(req.TimeMs),
		Replay:       req.Replay,
		ReplayHash:   req.ReplayHash,
		CarID:        req.CarID,
		CarColors:    req.CarColors,
		SubmissionID: req.SubmissionID,
	}
	if req.Frames != nil {
		f := number(*req.Frames)
		in.Frames = &f
	}
	return in
}

// number converts n, mapping absent or unparsable values to NaN so the
// service rejects them.
func number(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return math.NaN()
	}
	return f
}

// handleRaceResult handles POST /api/race-result.
func (s *Server) handleRaceResult(w http.ResponseWriter, r *http.Request) {
	var req raceResultRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}

	out, err := s.deps.SubmitRaceResult(r.Context(), req.input())
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "race result failed", logger.Error(err))
		}
		writeFailure(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, raceResultResponse{
		Success:         true,
		TrackID:         out.TrackID,
		Position:        out.Position,
		LeaderboardSize: out.LeaderboardSize,
		Duplicate:       out.Duplicate,
	})
}

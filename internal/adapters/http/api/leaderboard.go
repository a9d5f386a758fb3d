package api

import (
	"net/http"

	"github.com/okian/polytrack/internal/domain/model"
)

type overallResponse struct {
	Entries []model.OverallEntry `json:"entries"`
}

type trackLeaderboardResponse struct {
	TrackID string             `json:"trackId"`
	Entries []model.TrackEntry `json:"entries"`
}

// handleOverallLeaderboard handles GET /api/overall-leaderboard[?limit=N].
func (s *Server) handleOverallLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.defaultLimit, s.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, overallResponse{Entries: s.deps.OverallLeaderboard(r.Context(), limit)})
}

// handleTrackLeaderboard handles GET /api/leaderboard?trackId=ID[&limit=N].
func (s *Server) handleTrackLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, s.defaultLimit, s.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	trackID, entries, err := s.deps.TrackLeaderboard(r.Context(), r.URL.Query().Get("trackId"), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, trackLeaderboardResponse{TrackID: trackID, Entries: entries})
}

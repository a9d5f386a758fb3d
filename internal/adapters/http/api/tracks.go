package api

import (
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/polytrack/internal/app"
	"github.com/okian/polytrack/internal/domain/model"
	"github.com/okian/polytrack/pkg/logger"
)

type trackRequest struct {
	TrackID  string `json:"trackId"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Data     string `json:"data"`
}

type tracksResponse struct {
	Tracks []model.TrackSummary `json:"tracks"`
}

type upsertTrackResponse struct {
	Success bool   `json:"success"`
	TrackID string `json:"trackId"`
}

// handleListTracks handles GET /api/tracks.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: s.deps.ListTracks(r.Context())})
}

// handleGetTrack handles GET /api/tracks/{trackId}.
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.deps.Track(r.Context(), mux.Vars(r)["trackId"])
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			handleNotFound(w, r)
			return
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// handleUpsertTrack handles POST /api/tracks.
func (s *Server) handleUpsertTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}

	trackID, err := s.deps.UpsertTrack(r.Context(), service.TrackInput{
		TrackID:  req.TrackID,
		ID:       req.ID,
		Name:     req.Name,
		Title:    req.Title,
		Author:   req.Author,
		Category: req.Category,
		Data:     req.Data,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "track upsert failed", logger.Error(err))
		}
		writeFailure(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, upsertTrackResponse{Success: true, TrackID: trackID})
}

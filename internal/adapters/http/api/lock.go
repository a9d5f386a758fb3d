package api

import (
	"net/http"
)

type lockRequest struct {
	Password string `json:"password"`
	Action   string `json:"action"`
}

type lockStatusResponse struct {
	Locked bool `json:"locked"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// handleLockStatus handles GET /api/lock-status.
func (s *Server) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lockStatusResponse{Locked: s.deps.LockStatus(r.Context())})
}

// handleLock handles POST /api/lock. A wrong password is not an HTTP error.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}
	ok, err := s.deps.SetLock(r.Context(), req.Password, req.Action)
	if err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: ok})
}

// handleVerifyLocalUnlock handles POST /api/verify-local-unlock.
func (s *Server) handleVerifyLocalUnlock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeBody(w, r, s.maxBodyBytes, &req); err != nil {
		writeFailure(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: s.deps.VerifyLocalUnlock(req.Password)})
}

package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON marshals v as JSON and writes it with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// requirePath extracts the mandatory path query parameter
func (s *Server) requirePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "MISSING_PATH", "path query parameter is required")
		return "", false
	}
	return path, true
}

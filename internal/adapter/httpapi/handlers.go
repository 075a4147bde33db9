package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/guillermoBallester/strait/internal/core/domain"
	"github.com/guillermoBallester/strait/internal/core/service"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Backend is running. Use /api/upload to upload a CSV and /api/query to run SQL.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart CSV upload and loads it into the managed
// table, replacing whatever was there.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	ctx := service.WithSource(r.Context(), "http.upload")
	rows, err := s.upload.Load(ctx, header.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrNotCSV) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Load failures are the engine's fault, not the caller's.
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load CSV: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rows_loaded": rows,
	})
}

// handleQuery validates, bounds and executes one SQL statement. Rejections
// and engine errors are both the caller's problem (400); the sandbox itself
// never produces a 500 here.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected {\"sql\": \"...\"}")
		return
	}

	ctx := service.WithSource(r.Context(), "http.query")
	result, err := s.query.Execute(ctx, req.SQL)
	if err != nil {
		var rej *domain.Rejection
		if errors.As(err, &rej) {
			writeError(w, http.StatusBadRequest, rej.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/efterranova/jobson/internal/config"
	"github.com/efterranova/jobson/internal/records"
	"github.com/efterranova/jobson/internal/service"
	"github.com/efterranova/jobson/internal/storage"
)

// SearchRequest is the body of POST /api/search. Days <= 0 means no
// recency filter, not an error.
type SearchRequest struct {
	Keywords string `json:"keywords" validate:"required"`
	Mode     string `json:"mode" validate:"omitempty,oneof=jobs feed mixed"`
	Limit    int    `json:"limit" validate:"min=1"`
	Days     *int   `json:"days"`
}

// ResultsResponse is the body of GET /api/results.
type ResultsResponse struct {
	Records []records.Normalized `json:"records"`
	Summary ResultsSummary       `json:"summary"`
}

// ResultsSummary counts the returned page by source type.
type ResultsSummary struct {
	Total int `json:"total"`
	Jobs  int `json:"jobs"`
	Feed  int `json:"feed"`
}

// handleResults serves the persisted records with optional mode and
// free-text filters.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := storage.DefaultListLimit
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	sourceType := ""
	if mode := strings.ToLower(strings.TrimSpace(q.Get("mode"))); mode == records.SourceJobs || mode == records.SourceFeed {
		sourceType = mode
	}

	rows, err := s.repo.List(r.Context(), storage.ListFilter{
		Limit:      limit,
		SourceType: sourceType,
		Search:     strings.TrimSpace(q.Get("q")),
	})
	if err != nil {
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{
			"error":  "Could not read from the storage backend. Check SUPABASE_URL, SUPABASE_KEY and table permissions.",
			"detail": err.Error(),
		})
		return
	}

	if rows == nil {
		rows = []records.Normalized{}
	}
	summary := ResultsSummary{Total: len(rows)}
	for _, row := range rows {
		switch row.SourceType {
		case records.SourceJobs:
			summary.Jobs++
		case records.SourceFeed:
			summary.Feed++
		}
	}
	s.jsonResponse(w, http.StatusOK, ResultsResponse{Records: rows, Summary: summary})
}

// handleSearch triggers one harvest run. Requests are rejected while
// another harvest holds the browsing session.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.settings.AppRole == config.RoleViewer {
		s.errorResponse(w, http.StatusForbidden,
			"This server runs in viewer mode; harvests run from your local machine.")
		return
	}

	req := SearchRequest{Mode: service.ModeMixed, Limit: 20}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Keywords = strings.TrimSpace(req.Keywords)
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = service.ModeMixed
	}
	if req.Days != nil && *req.Days <= 0 {
		req.Days = nil
	}

	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid search request: "+err.Error())
		return
	}

	if !s.harvests.TryAcquire(1) {
		s.errorResponse(w, http.StatusConflict, "A harvest is already running; try again when it finishes.")
		return
	}
	defer s.harvests.Release(1)

	summary, err := s.runner.RunSearch(r.Context(), service.Request{
		Mode:     req.Mode,
		Keywords: req.Keywords,
		Limit:    req.Limit,
		Days:     req.Days,
	})
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Harvest failed: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

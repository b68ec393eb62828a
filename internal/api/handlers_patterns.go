package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sharewatch/sharewatch/internal/models"
	"github.com/sharewatch/sharewatch/internal/patterns"
)

func (s *Server) listPatterns(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	list, err := s.patternStore.ListPatterns(r.Context(), enabledOnly)
	if err != nil {
		s.logger.Error("failed to list patterns", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list patterns")
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func (s *Server) getPattern(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid pattern ID")
		return
	}

	pattern, err := s.patternStore.GetPattern(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get pattern", "pattern_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to get pattern")
		return
	}
	if pattern == nil {
		respondError(w, http.StatusNotFound, "not_found", "Pattern not found")
		return
	}

	respondJSON(w, http.StatusOK, pattern)
}

type patternRequest struct {
	Pattern     string `json:"pattern"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Enabled     *bool  `json:"enabled"`
}

func (s *Server) createPattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Pattern == "" || req.Type == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "pattern and type are required")
		return
	}
	if _, err := patterns.Compile(req.Pattern); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_pattern", err.Error())
		return
	}

	pattern := &models.SensitivePattern{
		ID:          uuid.New(),
		Pattern:     req.Pattern,
		Type:        req.Type,
		Description: req.Description,
		Enabled:     true,
	}
	if req.Enabled != nil {
		pattern.Enabled = *req.Enabled
	}

	if err := s.patternStore.CreatePattern(r.Context(), pattern); err != nil {
		s.logger.Error("failed to create pattern", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to create pattern")
		return
	}

	s.reloadPatterns(r)
	respondJSON(w, http.StatusCreated, pattern)
}

func (s *Server) updatePattern(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid pattern ID")
		return
	}

	pattern, err := s.patternStore.GetPattern(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get pattern", "pattern_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to get pattern")
		return
	}
	if pattern == nil {
		respondError(w, http.StatusNotFound, "not_found", "Pattern not found")
		return
	}

	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Pattern != "" {
		if _, err := patterns.Compile(req.Pattern); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_pattern", err.Error())
			return
		}
		pattern.Pattern = req.Pattern
	}
	if req.Type != "" {
		pattern.Type = req.Type
	}
	if req.Description != "" {
		pattern.Description = req.Description
	}
	if req.Enabled != nil {
		pattern.Enabled = *req.Enabled
	}

	if err := s.patternStore.UpdatePattern(r.Context(), pattern); err != nil {
		s.logger.Error("failed to update pattern", "pattern_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to update pattern")
		return
	}

	s.reloadPatterns(r)
	respondJSON(w, http.StatusOK, pattern)
}

func (s *Server) deletePattern(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patternID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid pattern ID")
		return
	}

	if err := s.patternStore.DeletePattern(r.Context(), id); err != nil {
		s.logger.Error("failed to delete pattern", "pattern_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to delete pattern")
		return
	}

	s.reloadPatterns(r)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type testPatternRequest struct {
	Pattern string `json:"pattern"`
	Sample  string `json:"sample"`
}

func (s *Server) testPattern(w http.ResponseWriter, r *http.Request) {
	var req testPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Pattern == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "pattern is required")
		return
	}

	matches, err := patterns.Test(req.Pattern, req.Sample)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_pattern", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matched": len(matches) > 0,
		"matches": matches,
	})
}

func (s *Server) reloadPatterns(r *http.Request) {
	if err := s.patternEngine.LoadPatterns(r.Context()); err != nil {
		s.logger.Warn("failed to reload patterns", "error", err)
	}
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sharewatch/sharewatch/internal/cache"
	"github.com/sharewatch/sharewatch/internal/diff"
	"github.com/sharewatch/sharewatch/internal/query"
)

// parsePage reads page/limit query parameters, falling back to defaultLimit.
func parsePage(r *http.Request, defaultLimit int) query.Page {
	page := 0
	limit := 0
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			page = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	return query.NewPage(page, limit, defaultLimit)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r, s.cfg.Listing.SharePageSize)

	sessions, total, err := s.store.ListSessions(r.Context(), page.Limit, page.Offset())
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list scan sessions")
		return
	}

	respondJSONWithMeta(w, http.StatusOK, sessions, page.Meta(total))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid session ID")
		return
	}

	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get session", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to get scan session")
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "not_found", "Scan session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid session ID")
		return
	}

	if err := s.store.DeleteSession(r.Context(), id); err != nil {
		s.logger.Error("failed to delete session", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to delete scan session")
		return
	}

	// Deleting a session changes every derived report.
	if s.cache != nil {
		if err := s.cache.InvalidateReports(r.Context()); err != nil {
			s.logger.Warn("failed to invalidate report cache", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listShares(w http.ResponseWriter, r *http.Request) {
	filter := query.ShareFilter{
		Search:        r.URL.Query().Get("search"),
		DetectionType: r.URL.Query().Get("detection_type"),
		MatchField:    r.URL.Query().Get("match_field"),
		MatchValue:    r.URL.Query().Get("match_value"),
	}
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		parsed, err := strconv.ParseInt(sid, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_session_id", "Invalid session_id parameter")
			return
		}
		filter.SessionID = parsed
	} else {
		filter.LatestOnly = true
	}

	page := parsePage(r, s.cfg.Listing.SharePageSize)

	shares, total, err := s.store.ListShares(r.Context(), filter, page)
	if err != nil {
		s.logger.Error("failed to list shares", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list shares")
		return
	}

	respondJSONWithMeta(w, http.StatusOK, shares, page.Meta(total))
}

func (s *Server) getShare(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shareID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid share ID")
		return
	}

	share, err := s.store.GetShare(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get share", "share_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to get share")
		return
	}
	if share == nil {
		respondError(w, http.StatusNotFound, "not_found", "Share not found")
		return
	}

	respondJSON(w, http.StatusOK, share)
}

func (s *Server) listShareFiles(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shareID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid share ID")
		return
	}

	page := parsePage(r, s.cfg.Listing.FilePageSize)

	files, total, err := s.store.ListShareSensitiveFiles(r.Context(), id, page)
	if err != nil {
		s.logger.Error("failed to list sensitive files", "share_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list sensitive files")
		return
	}

	respondJSONWithMeta(w, http.StatusOK, files, page.Meta(total))
}

func (s *Server) listShareRootFiles(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shareID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid share ID")
		return
	}

	page := parsePage(r, s.cfg.Listing.FilePageSize)

	files, total, err := s.store.ListShareRootFiles(r.Context(), id, page)
	if err != nil {
		s.logger.Error("failed to list root files", "share_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list root files")
		return
	}

	respondJSONWithMeta(w, http.StatusOK, files, page.Meta(total))
}

func (s *Server) compareSessions(w http.ResponseWriter, r *http.Request) {
	session1, err := strconv.ParseInt(r.URL.Query().Get("session1"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session1 must be a session ID")
		return
	}
	session2, err := strconv.ParseInt(r.URL.Query().Get("session2"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session2 must be a session ID")
		return
	}

	if s.cache != nil {
		var cached diff.Report
		hit, err := s.cache.GetJSON(r.Context(), cache.DiffKey(session1, session2), &cached)
		if err != nil {
			s.logger.Warn("report cache read failed", "error", err)
		} else if hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	report, err := s.diffEngine.Compare(r.Context(), session1, session2)
	if err != nil {
		if errors.Is(err, diff.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		s.logger.Error("failed to compare sessions",
			"session1", session1, "session2", session2, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to compare sessions")
		return
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(r.Context(), cache.DiffKey(session1, session2), report); err != nil {
			s.logger.Warn("report cache write failed", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, report)
}

func (s *Server) getStatsSummary(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		var cached map[string]interface{}
		hit, err := s.cache.GetJSON(r.Context(), cache.StatsSummaryKey, &cached)
		if err != nil {
			s.logger.Warn("report cache read failed", "error", err)
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	summary, err := s.aggregator.Summary(r.Context())
	if err != nil {
		s.logger.Error("failed to compute stats summary", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to compute summary")
		return
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(r.Context(), cache.StatsSummaryKey, summary); err != nil {
			s.logger.Warn("report cache write failed", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r, s.cfg.Listing.ActivityPageSize)

	sessions, total, err := s.store.ListSessions(r.Context(), page.Limit, page.Offset())
	if err != nil {
		s.logger.Error("failed to list activity", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to list recent activity")
		return
	}

	respondJSONWithMeta(w, http.StatusOK, sessions, page.Meta(total))
}

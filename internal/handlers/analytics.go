package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
)

// AnalyticsHandler handles dashboard and leaderboard endpoints
type AnalyticsHandler struct {
	engine *analytics.Engine
	logger *zap.SugaredLogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(engine *analytics.Engine, logger *zap.SugaredLogger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, logger: logger}
}

// Users handles GET /api/v1/analytics/users
func (h *AnalyticsHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.GetAllUsers(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to list analytics users", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UserDaily handles GET /api/v1/analytics/users/{initials}/daily?days=N
func (h *AnalyticsHandler) UserDaily(w http.ResponseWriter, r *http.Request) {
	initials := chi.URLParam(r, "initials")

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}

	buckets, err := h.engine.GetUserRecentDailyAnalytics(r.Context(), initials, days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch daily analytics")
		return
	}
	respondJSON(w, http.StatusOK, buckets)
}

// UserWeek handles GET /api/v1/analytics/users/{initials}/week
func (h *AnalyticsHandler) UserWeek(w http.ResponseWriter, r *http.Request) {
	initials := chi.URLParam(r, "initials")

	week, err := h.engine.GetUserCurrentWeekAnalytics(r.Context(), initials)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch weekly analytics")
		return
	}
	if week == nil {
		// No activity this week; the client shows an empty state.
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, week)
}

// UserMonth handles GET /api/v1/analytics/users/{initials}/month
func (h *AnalyticsHandler) UserMonth(w http.ResponseWriter, r *http.Request) {
	initials := chi.URLParam(r, "initials")

	month, err := h.engine.GetUserCurrentMonthAnalytics(r.Context(), initials)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch monthly analytics")
		return
	}
	if month == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, month)
}

// Leaderboard handles GET /api/v1/analytics/leaderboard?period=week|month&limit=N
func (h *AnalyticsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	performers, err := h.engine.GetTopPerformers(r.Context(), period, limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, performers)
}

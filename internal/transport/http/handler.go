package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"quiz-ranking-service/internal/domain"
	"quiz-ranking-service/internal/ranking"
)

// Handler translates HTTP requests into ranking service calls. It owns no
// logic beyond parameter parsing and error mapping.
type Handler struct {
	leaderboards *ranking.LeaderboardService
	global       *ranking.GlobalService
}

func NewHandler(leaderboards *ranking.LeaderboardService, global *ranking.GlobalService) *Handler {
	return &Handler{leaderboards: leaderboards, global: global}
}

// Leaderboard serves GET /challenge/leaderboard?challengeId=&userId=.
// userId is optional; anonymous viewers get a guest my-entry.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	challengeID := r.URL.Query().Get("challengeId")
	if challengeID == "" {
		http.Error(w, "missing challengeId", http.StatusBadRequest)
		return
	}
	userID := r.URL.Query().Get("userId")

	view, err := h.leaderboards.ResolveLeaderboard(r.Context(), challengeID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

// ChallengeResult serves GET /challenge/result?challengeId=&userId=.
func (h *Handler) ChallengeResult(w http.ResponseWriter, r *http.Request) {
	challengeID := r.URL.Query().Get("challengeId")
	userID := r.URL.Query().Get("userId")
	if challengeID == "" || userID == "" {
		http.Error(w, "missing challengeId or userId", http.StatusBadRequest)
		return
	}

	result, err := h.leaderboards.ChallengeResult(r.Context(), challengeID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// GlobalRanking serves GET /ranking/global?period=&limit=.
func (h *Handler) GlobalRanking(w http.ResponseWriter, r *http.Request) {
	period := domain.Period(strings.ToUpper(r.URL.Query().Get("period")))
	if period == "" {
		period = domain.PeriodToday
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.global.GlobalRanking(r.Context(), period, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrSubmissionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidPeriod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrChallengeClosed):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		// Ranking is best-effort; don't leak store internals to clients.
		log.Printf("ranking request failed: %v", err)
		http.Error(w, "ranking temporarily unavailable", http.StatusInternalServerError)
	}
}

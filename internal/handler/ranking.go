package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/classpoints/internal/classroom"
)

const maxProgressDays = 366

type RankingHandler struct {
	classroom *classroom.Classroom
	logger    *slog.Logger
}

func NewRankingHandler(c *classroom.Classroom, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{classroom: c, logger: logger}
}

func (h *RankingHandler) Total(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.TotalRanking())
}

// Progress ranks by net points over the last ?days= days, 7 by default.
func (h *RankingHandler) Progress(w http.ResponseWriter, r *http.Request) {
	window := classroom.DefaultProgressWindow
	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > maxProgressDays {
			writeMessage(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		window = time.Duration(days) * 24 * time.Hour
	}
	writeJSON(w, http.StatusOK, h.classroom.ProgressRanking(window))
}

func (h *RankingHandler) Groups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.GroupRanking())
}

func (h *RankingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.classroom.Stats())
}

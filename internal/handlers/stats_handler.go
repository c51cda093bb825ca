package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pong/internal/repositories"
	"pong/internal/utils"
)

// StatsHandler serves per-player match history and aggregates.
type StatsHandler struct {
	Repo *repositories.HistoryRepository
}

func NewStatsHandler(repo *repositories.HistoryRepository) *StatsHandler {
	return &StatsHandler{Repo: repo}
}

func (h *StatsHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.Repo.GetByUserID(chi.URLParam(r, "id"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	utils.JSON(w, http.StatusOK, records)
}

func (h *StatsHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Repo.StatsForUser(chi.URLParam(r, "id"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "could not load stats")
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

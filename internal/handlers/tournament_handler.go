package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pong/internal/engine"
	"pong/internal/models"
	"pong/internal/utils"
)

// TournamentHandler exposes bracket lifecycle over REST. Gameplay inside a
// tournament still flows over the websocket; these endpoints only manage
// membership.
type TournamentHandler struct {
	Engine *engine.Engine
}

func NewTournamentHandler(eng *engine.Engine) *TournamentHandler {
	return &TournamentHandler{Engine: eng}
}

func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTournamentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	info, err := h.Engine.CreateTournament(PlayerID(r), req.Title)
	if err != nil {
		writeTournamentError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, info)
}

func (h *TournamentHandler) JoinHandler(w http.ResponseWriter, r *http.Request) {
	info, err := h.Engine.JoinTournament(chi.URLParam(r, "id"), PlayerID(r))
	if err != nil {
		writeTournamentError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, info)
}

func (h *TournamentHandler) LeaveHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.LeaveTournament(chi.URLParam(r, "id"), PlayerID(r)); err != nil {
		writeTournamentError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.Engine.Tournaments())
}

func (h *TournamentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	info, err := h.Engine.Tournament(chi.URLParam(r, "id"))
	if err != nil {
		writeTournamentError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, info)
}

func writeTournamentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrTournamentNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrTournamentFull),
		errors.Is(err, engine.ErrTournamentStarted),
		errors.Is(err, engine.ErrAlreadyInTournament),
		errors.Is(err, engine.ErrAlreadyInMatch),
		errors.Is(err, engine.ErrAlreadyQueued):
		utils.JSONError(w, http.StatusConflict, err.Error())
	default:
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	}
}

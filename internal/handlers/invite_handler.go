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

// InviteHandler manages friend-match invites. The invitee is notified over
// their websocket; accept and decline come back through these endpoints.
type InviteHandler struct {
	Engine *engine.Engine
}

func NewInviteHandler(eng *engine.Engine) *InviteHandler {
	return &InviteHandler{Engine: eng}
}

func (h *InviteHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.InviteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	gameID, err := h.Engine.CreateInvite(PlayerID(r), req.To)
	if err != nil {
		writeInviteError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, models.GameRef{GameID: gameID})
}

func (h *InviteHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.AcceptInvite(chi.URLParam(r, "id"), PlayerID(r)); err != nil {
		writeInviteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *InviteHandler) DeclineHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeclineInvite(chi.URLParam(r, "id"), PlayerID(r)); err != nil {
		writeInviteError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func writeInviteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInviteNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNotYourInvite):
		utils.JSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotConnected),
		errors.Is(err, engine.ErrAlreadyInMatch),
		errors.Is(err, engine.ErrAlreadyQueued),
		errors.Is(err, engine.ErrAlreadyInTournament):
		utils.JSONError(w, http.StatusConflict, err.Error())
	default:
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	}
}

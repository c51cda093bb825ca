package engine

import (
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"pong/internal/models"
)

// StartAIMatch creates a match against the external AI process. The bridge is
// a second outbound websocket attached to the room like any other socket:
// broadcasts reach it identically, and its move frames come back through the
// same ApplyInput path, so the AI is indistinguishable from a second player
// at the protocol boundary.
func (e *Engine) StartAIMatch(playerID, difficulty string) (*Match, error) {
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	case "":
		difficulty = models.DifficultyMedium
	default:
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	e.mu.Lock()
	if !e.connectedLocked(playerID) {
		e.mu.Unlock()
		return nil, ErrNotConnected
	}
	if _, ok := e.playerMatch[playerID]; ok {
		e.mu.Unlock()
		return nil, ErrAlreadyInMatch
	}
	if _, ok := e.playerTournament[playerID]; ok {
		e.mu.Unlock()
		return nil, ErrAlreadyInTournament
	}
	m := e.createMatchLocked("", playerID, SlotAI, models.ModeAI)
	m.Difficulty = difficulty
	e.attachLocked(m, playerID)
	botURL := fmt.Sprintf("%s?gameId=%s&difficulty=%s", e.aiBotURL, url.QueryEscape(m.ID), url.QueryEscape(difficulty))
	e.mu.Unlock()

	// Dial outside the lock; the bot process is a network peer.
	conn, err := e.dialAI(botURL)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.matches[m.ID]; !ok {
		// The human vanished while we were dialing.
		if conn != nil {
			conn.Close()
		}
		return nil, ErrMatchNotFound
	}
	if err != nil {
		e.sendToPlayerLocked(playerID, errorEvent("AI opponent unavailable"))
		e.removeMatchLocked(m)
		return nil, fmt.Errorf("ai bridge dial: %w", err)
	}

	bridge := NewClient(conn)
	m.bridge = bridge
	m.clients[SlotAI] = bridge
	go e.bridgeReadLoop(m, bridge)

	e.broadcastLocked(m, e.configEventLocked(m))
	e.logger.Info("ai match started",
		zap.String("gameId", m.ID),
		zap.String("playerId", playerID),
		zap.String("difficulty", difficulty))
	return m, nil
}

// bridgeReadLoop pumps move frames from the AI process into the match.
func (e *Engine) bridgeReadLoop(m *Match, bridge *Client) {
	for {
		var frame models.WSFrame
		if err := bridge.Conn.ReadJSON(&frame); err != nil {
			e.bridgeClosed(m, bridge)
			return
		}
		if frame.Type != models.MsgGameUpdate {
			continue
		}
		var req models.GameUpdateReq
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			continue
		}
		if err := e.ApplyInput(m.ID, SlotAI, req.Input); err != nil {
			e.logger.Debug("ai input rejected", zap.String("gameId", m.ID), zap.Error(err))
		}
	}
}

// bridgeClosed treats a dead bridge as an opponent disconnect: the human wins
// by forfeit if the match was running, otherwise the room is torn down with
// an explicit error event.
func (e *Engine) bridgeClosed(m *Match, bridge *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.matches[m.ID]
	if !ok || cur != m || m.bridge != bridge {
		return
	}
	e.logger.Warn("ai bridge closed", zap.String("gameId", m.ID))

	if m.Status == StatusOngoing {
		e.broadcastLocked(m, models.Event{
			Type:    models.EvtPlayerDisconnected,
			Payload: models.GameRef{GameID: m.ID},
		})
		e.forfeitLocked(m, SlotAI)
		return
	}
	e.sendToPlayerLocked(m.P1, errorEvent("AI opponent disconnected"))
	e.stopLoopLocked(m)
	e.removeMatchLocked(m)
}

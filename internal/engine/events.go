package engine

import (
	"pong/internal/models"
)

func snapshotEvent(m *Match) models.Event {
	return models.Event{Type: models.EvtGameUpdate, Payload: m.State.snapshot()}
}

func finishEvent(m *Match) models.Event {
	return models.Event{Type: models.EvtGameFinish, Payload: map[string]string{
		"gameId": m.ID,
		"winner": m.Winner,
	}}
}

func readyEvent(m *Match) models.Event {
	ready := make([]string, 0, len(m.Ready))
	for pid := range m.Ready {
		ready = append(ready, pid)
	}
	return models.Event{Type: models.EvtPlayerReady, Payload: map[string]any{
		"gameId":       m.ID,
		"readyPlayers": ready,
	}}
}

func (e *Engine) configEventLocked(m *Match) models.Event {
	snap := m.State.snapshot()
	return models.Event{Type: models.EvtGameConfig, Payload: models.GameConfig{
		GameID:     m.ID,
		Mode:       m.Mode,
		Difficulty: m.Difficulty,
		Canvas:     models.Size{W: e.game.CanvasW, H: e.game.CanvasH},
		Paddle:     models.PaddleDims{W: e.game.PaddleW, H: e.game.PaddleH, Speed: e.game.PaddleSpeed},
		Paddles:    snap.Paddles,
		Ball:       snap.Ball,
	}}
}

func errorEvent(message string) models.Event {
	return models.Event{Type: models.EvtError, Payload: map[string]string{"message": message}}
}

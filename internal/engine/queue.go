package engine

import (
	"go.uber.org/zap"

	"pong/internal/metrics"
	"pong/internal/models"
)

// JoinRandom appends the player to the matchmaking queue. Enqueueing twice is
// a no-op, so the queue never holds duplicates.
func (e *Engine) JoinRandom(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connectedLocked(playerID) {
		return ErrNotConnected
	}
	if _, ok := e.playerMatch[playerID]; ok {
		return ErrAlreadyInMatch
	}
	if _, ok := e.playerTournament[playerID]; ok {
		return ErrAlreadyInTournament
	}
	if _, ok := e.queued[playerID]; ok {
		return nil
	}
	e.queue = append(e.queue, playerID)
	e.queued[playerID] = struct{}{}
	metrics.QueueDepth.Set(float64(len(e.queue)))
	e.logger.Info("player queued", zap.String("playerId", playerID), zap.Int("depth", len(e.queue)))
	e.tryPairLocked()
	return nil
}

// LeaveRandom removes the player from the queue; absent players are ignored.
func (e *Engine) LeaveRandom(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dequeueLocked(playerID)
}

func (e *Engine) dequeueLocked(playerID string) {
	if _, ok := e.queued[playerID]; !ok {
		return
	}
	delete(e.queued, playerID)
	for i, pid := range e.queue {
		if pid == playerID {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
	metrics.QueueDepth.Set(float64(len(e.queue)))
}

// tryPairLocked drains the queue in insertion order, two at a time, creating
// a random-mode match per pair. Both sockets are attached and sent the
// pairing announcement plus the initial snapshot; the tick loop starts once
// both players signal ready and the countdown delay elapses.
func (e *Engine) tryPairLocked() {
	for len(e.queue) >= 2 {
		p1, p2 := e.queue[0], e.queue[1]
		e.queue = e.queue[2:]
		delete(e.queued, p1)
		delete(e.queued, p2)
		metrics.QueueDepth.Set(float64(len(e.queue)))

		m := e.createMatchLocked("", p1, p2, models.ModeRandom)
		e.attachLocked(m, p1)
		e.attachLocked(m, p2)
		e.broadcastLocked(m, models.Event{Type: models.EvtOpponentFound, Payload: map[string]string{
			"player1": p1,
			"player2": p2,
		}})
		e.broadcastLocked(m, e.configEventLocked(m))
	}
}

// JoinLocal creates a single-connection match where one client drives both
// paddles.
func (e *Engine) JoinLocal(playerID string) (*Match, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connectedLocked(playerID) {
		return nil, ErrNotConnected
	}
	if _, ok := e.playerMatch[playerID]; ok {
		return nil, ErrAlreadyInMatch
	}
	if _, ok := e.playerTournament[playerID]; ok {
		return nil, ErrAlreadyInTournament
	}
	m := e.createMatchLocked("", playerID, SlotLocal, models.ModeLocal)
	e.attachLocked(m, playerID)
	e.broadcastLocked(m, e.configEventLocked(m))
	return m, nil
}

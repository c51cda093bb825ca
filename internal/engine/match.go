package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pong/internal/metrics"
	"pong/internal/models"
)

// Match statuses
const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

// Reserved slot identifiers. "local" means both paddles are driven by one
// connection; "ai" means the right paddle is driven by the AI bridge.
const (
	SlotLocal = "local"
	SlotAI    = "ai"
)

type loopHandle struct {
	stop chan struct{}
}

// Match is one authoritative game room. All fields are guarded by the engine
// mutex; the tick goroutine only touches them through Engine.tick.
type Match struct {
	ID           string
	Mode         string
	Status       string
	P1, P2       string
	Difficulty   string
	TournamentID string
	Paused       bool
	Winner       string
	Ready        map[string]bool
	State        *GameState

	// clients holds every socket attached to the room, keyed by the player
	// identifier (or "ai" for the bridge connection).
	clients map[string]*Client
	bridge  *Client

	loop      *loopHandle
	startTask *task

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

// realPlayers returns the human player identifiers occupying the two slots.
func (m *Match) realPlayers() []string {
	players := make([]string, 0, 2)
	for _, p := range []string{m.P1, m.P2} {
		if p != SlotLocal && p != SlotAI {
			players = append(players, p)
		}
	}
	return players
}

func (m *Match) slotOf(id string) int {
	switch id {
	case m.P1:
		return sideLeft
	case m.P2:
		return sideRight
	}
	return -1
}

func (m *Match) sideID(side int) string {
	if side == sideLeft {
		return m.P1
	}
	return m.P2
}

func (m *Match) opponentOf(id string) string {
	if id == m.P1 {
		return m.P2
	}
	return m.P1
}

func (e *Engine) createMatchLocked(id, p1, p2, mode string) *Match {
	if id == "" {
		id = uuid.New().String()
	}
	m := &Match{
		ID:        id,
		Mode:      mode,
		Status:    StatusWaiting,
		P1:        p1,
		P2:        p2,
		Paused:    true,
		Ready:     make(map[string]bool),
		State:     NewGameState(e.game),
		clients:   make(map[string]*Client),
		CreatedAt: time.Now(),
	}
	e.matches[m.ID] = m
	for _, pid := range m.realPlayers() {
		e.playerMatch[pid] = m.ID
	}
	metrics.ActiveMatches.WithLabelValues(mode).Inc()
	e.logger.Info("match created",
		zap.String("gameId", m.ID),
		zap.String("mode", mode),
		zap.String("p1", p1),
		zap.String("p2", p2))
	return m
}

func (e *Engine) attachLocked(m *Match, playerID string) {
	if c, ok := e.conns[playerID]; ok {
		m.clients[playerID] = c
	}
}

// removeMatchLocked takes the match out of the active index. It does not
// touch the tick loop; callers stop it first.
func (e *Engine) removeMatchLocked(m *Match) {
	if _, ok := e.matches[m.ID]; !ok {
		return
	}
	delete(e.matches, m.ID)
	for _, pid := range m.realPlayers() {
		if e.playerMatch[pid] == m.ID {
			delete(e.playerMatch, pid)
		}
	}
	m.startTask.cancel()
	m.startTask = nil
	if m.bridge != nil {
		m.bridge.Close()
		m.bridge = nil
	}
	metrics.ActiveMatches.WithLabelValues(m.Mode).Dec()
}

func (e *Engine) stopLoopLocked(m *Match) {
	if m.loop != nil {
		close(m.loop.stop)
		m.loop = nil
	}
}

// SetReady marks a player ready. Once the required players are ready the
// match start is scheduled after the fixed countdown delay.
func (e *Engine) SetReady(gameID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.matches[gameID]
	if !ok {
		return ErrMatchNotFound
	}
	if m.slotOf(playerID) < 0 {
		return ErrNotInMatch
	}
	if m.Status != StatusWaiting {
		return nil
	}

	m.Ready[playerID] = true
	e.broadcastLocked(m, readyEvent(m))

	if e.readyCompleteLocked(m) && m.startTask == nil {
		m.startTask = e.schedule(e.matchStartDelay, func() {
			e.startMatchLocked(m)
		})
	}
	return nil
}

func (e *Engine) readyCompleteLocked(m *Match) bool {
	for _, pid := range m.realPlayers() {
		if !m.Ready[pid] {
			return false
		}
	}
	return true
}

func (e *Engine) startMatchLocked(m *Match) {
	m.startTask = nil
	if m.Status != StatusWaiting {
		return
	}
	if _, ok := e.matches[m.ID]; !ok {
		return
	}

	m.Status = StatusOngoing
	m.Paused = false
	m.StartedAt = time.Now()
	m.loop = &loopHandle{stop: make(chan struct{})}
	e.broadcastLocked(m, models.Event{Type: models.EvtGameStart, Payload: models.GameRef{GameID: m.ID}})
	e.broadcastLocked(m, snapshotEvent(m))
	go e.runLoop(m, m.loop)
	e.logger.Info("match started", zap.String("gameId", m.ID), zap.String("mode", m.Mode))
}

func (e *Engine) runLoop(m *Match, loop *loopHandle) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-loop.stop:
			return
		case <-ticker.C:
			e.tick(m)
		}
	}
}

// tick advances one match by one frame: physics step, win check, broadcast.
// Scoring and the win check happen in the same tick, so a score can never sit
// past the threshold without its terminal event.
func (e *Engine) tick(m *Match) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if m.Status != StatusOngoing || m.Paused || m.loop == nil {
		return
	}
	metrics.Ticks.Inc()

	scorer := m.State.Step()
	if scorer >= 0 && m.State.Paddles[scorer].Score >= e.game.WinScore {
		e.finishLocked(m, m.sideID(scorer), models.ReasonScore)
		return
	}
	e.broadcastLocked(m, snapshotEvent(m))
}

// ApplyInput updates the calling player's paddle-direction flags. It is a
// no-op unless the match is ongoing. Local mode takes the dual shape from the
// single attached connection; every other mode takes the flat shape.
func (e *Engine) ApplyInput(gameID, playerID string, in models.Input) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.matches[gameID]
	if !ok {
		return ErrMatchNotFound
	}
	if m.Status != StatusOngoing {
		return nil
	}

	if m.Mode == models.ModeLocal {
		if !in.IsDual() {
			return ErrInvalidInput
		}
		if m.slotOf(playerID) < 0 {
			return ErrNotInMatch
		}
		if in.Left != nil {
			m.State.setPaddleInput(sideLeft, *in.Left)
		}
		if in.Right != nil {
			m.State.setPaddleInput(sideRight, *in.Right)
		}
		return nil
	}

	if in.IsDual() {
		return ErrInvalidInput
	}
	slot := m.slotOf(playerID)
	if slot < 0 {
		return ErrNotInMatch
	}
	m.State.setPaddleInput(slot, models.PaddleInput{Up: in.Up, Down: in.Down})
	return nil
}

// finishLocked drives a match to its terminal state: winner recorded, loop
// stopped, terminal event broadcast, match removed and summarized.
func (e *Engine) finishLocked(m *Match, winner, reason string) {
	m.Status = StatusFinished
	m.Winner = winner
	m.EndedAt = time.Now()
	e.stopLoopLocked(m)
	e.broadcastLocked(m, finishEvent(m))
	e.removeMatchLocked(m)
	e.emitFinishedLocked(summarize(m, reason))
	e.logger.Info("match finished",
		zap.String("gameId", m.ID),
		zap.String("winner", winner),
		zap.String("reason", reason))
	if m.TournamentID != "" {
		e.tournamentMatchFinishedLocked(m)
	}
}

// forfeitLocked resolves a match in favor of the remaining side with a
// deterministic terminal score.
func (e *Engine) forfeitLocked(m *Match, leaver string) {
	winner := m.opponentOf(leaver)
	if slot := m.slotOf(winner); slot >= 0 {
		m.State.Paddles[slot].Score = e.game.WinScore
	}
	e.finishLocked(m, winner, models.ReasonForfeit)
}

// LeaveMatch is the explicit "concede" path: the same forfeiture rule as a
// disconnect, applied immediately while the socket stays open.
func (e *Engine) LeaveMatch(gameID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.matches[gameID]
	if !ok {
		return ErrMatchNotFound
	}
	if m.slotOf(playerID) < 0 {
		return ErrNotInMatch
	}
	e.playerLeftMatchLocked(m, playerID)
	return nil
}

// playerLeftMatchLocked applies the departure rules of one match.
// Two-human modes forfeit to the opponent when the match is ongoing;
// a match that never started is dissolved without a winner. Local and AI
// matches have no human opponent to award, so they are torn down.
func (e *Engine) playerLeftMatchLocked(m *Match, playerID string) {
	switch m.Mode {
	case models.ModeLocal, models.ModeAI:
		e.stopLoopLocked(m)
		e.removeMatchLocked(m)
	default:
		if m.Status == StatusOngoing {
			e.broadcastLocked(m, models.Event{
				Type:    models.EvtPlayerDisconnected,
				Payload: models.GameRef{GameID: m.ID},
			})
			e.forfeitLocked(m, playerID)
			return
		}
		// Not started yet: tell the opponent and dissolve quietly.
		e.stopLoopLocked(m)
		e.broadcastLocked(m, models.Event{
			Type:    models.EvtPlayerDisconnected,
			Payload: models.GameRef{GameID: m.ID},
		})
		e.removeMatchLocked(m)
	}
}

func summarize(m *Match, reason string) models.MatchSummary {
	started := m.StartedAt
	if started.IsZero() {
		started = m.CreatedAt
	}
	duration := 0
	if !m.EndedAt.IsZero() && m.EndedAt.After(started) {
		duration = int(m.EndedAt.Sub(started).Seconds())
	}
	return models.MatchSummary{
		MatchID:      m.ID,
		Mode:         m.Mode,
		Player1:      m.P1,
		Player2:      m.P2,
		Winner:       m.Winner,
		Score1:       m.State.Paddles[sideLeft].Score,
		Score2:       m.State.Paddles[sideRight].Score,
		Reason:       reason,
		TournamentID: m.TournamentID,
		StartedAt:    started,
		EndedAt:      m.EndedAt,
		DurationSec:  duration,
	}
}

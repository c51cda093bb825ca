package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pong/internal/metrics"
	"pong/internal/models"
)

// Tournament statuses
const (
	TourneyWaiting   = "waiting"
	TourneySemifinal = "semifinal"
	TourneyFinal     = "final"
	TourneyFinished  = "finished"
	TourneyCanceled  = "canceled"
)

const tournamentSize = 4

// Tournament is a four-player bracket: two semifinals, then a final created
// once both semifinals resolve.
type Tournament struct {
	ID        string
	Title     string
	Owner     string
	Status    string
	Players   []string
	Rounds    []*Match
	Winner    string
	CreatedAt time.Time

	startTask *task
}

func (t *Tournament) info() models.TournamentInfo {
	players := make([]string, len(t.Players))
	copy(players, t.Players)
	return models.TournamentInfo{
		TournamentID: t.ID,
		Title:        t.Title,
		Status:       t.Status,
		Players:      players,
		NumPlayers:   len(t.Players),
		Winner:       t.Winner,
	}
}

// CreateTournament opens a new bracket with the owner as its first player.
func (e *Engine) CreateTournament(ownerID, title string) (models.TournamentInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.playerTournament[ownerID]; ok {
		return models.TournamentInfo{}, ErrAlreadyInTournament
	}
	if err := e.busyLocked(ownerID); err != nil {
		return models.TournamentInfo{}, err
	}
	t := &Tournament{
		ID:        uuid.New().String(),
		Title:     title,
		Owner:     ownerID,
		Status:    TourneyWaiting,
		Players:   []string{ownerID},
		CreatedAt: time.Now(),
	}
	e.tournaments[t.ID] = t
	e.playerTournament[ownerID] = t.ID
	metrics.ActiveTournaments.Set(float64(len(e.tournaments)))

	e.sendToPlayerLocked(ownerID, models.Event{Type: models.EvtTournamentCreated, Payload: map[string]any{
		"tournamentId": t.ID,
		"title":        t.Title,
		"numPlayers":   len(t.Players),
	}})
	e.logger.Info("tournament created", zap.String("tournamentId", t.ID), zap.String("owner", ownerID))
	return t.info(), nil
}

// JoinTournament appends a player to a waiting bracket. The fourth join
// schedules the start after a fixed delay, canceled if anyone leaves first.
func (e *Engine) JoinTournament(tournamentID, playerID string) (models.TournamentInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		return models.TournamentInfo{}, ErrTournamentNotFound
	}
	if t.Status != TourneyWaiting {
		return models.TournamentInfo{}, ErrTournamentStarted
	}
	if _, ok := e.playerTournament[playerID]; ok {
		return models.TournamentInfo{}, ErrAlreadyInTournament
	}
	if err := e.busyLocked(playerID); err != nil {
		return models.TournamentInfo{}, err
	}
	if len(t.Players) >= tournamentSize {
		return models.TournamentInfo{}, ErrTournamentFull
	}

	t.Players = append(t.Players, playerID)
	e.playerTournament[playerID] = t.ID
	e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentJoined, Payload: map[string]any{
		"tournamentId": t.ID,
		"numPlayers":   len(t.Players),
	}})

	if len(t.Players) == tournamentSize && t.startTask == nil {
		t.startTask = e.schedule(e.tournamentStartDelay, func() {
			e.startTournamentLocked(t)
		})
	}
	return t.info(), nil
}

// LeaveTournament handles an explicit leave request: a waiting bracket just
// shrinks, a started one is canceled outright.
func (e *Engine) LeaveTournament(tournamentID, playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if e.playerTournament[playerID] != t.ID {
		return ErrTournamentNotFound
	}
	switch t.Status {
	case TourneyWaiting:
		e.tournamentRemovePlayerLocked(t, playerID)
	default:
		e.cancelTournamentLocked(t, "player left the tournament")
	}
	return nil
}

// Tournaments returns a snapshot of every registered tournament.
func (e *Engine) Tournaments() []models.TournamentInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.TournamentInfo, 0, len(e.tournaments))
	for _, t := range e.tournaments {
		out = append(out, t.info())
	}
	return out
}

// Tournament returns one tournament's snapshot.
func (e *Engine) Tournament(tournamentID string) (models.TournamentInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		return models.TournamentInfo{}, ErrTournamentNotFound
	}
	return t.info(), nil
}

func (e *Engine) tournamentRemovePlayerLocked(t *Tournament, playerID string) {
	for i, pid := range t.Players {
		if pid == playerID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			break
		}
	}
	delete(e.playerTournament, playerID)
	t.startTask.cancel()
	t.startTask = nil

	if len(t.Players) == 0 {
		// The last player's socket is still registered on the explicit-leave
		// path, so they learn the bracket is gone.
		e.sendToPlayerLocked(playerID, models.Event{Type: models.EvtTournamentDeleted, Payload: map[string]string{
			"tournamentId": t.ID,
		}})
		delete(e.tournaments, t.ID)
		metrics.ActiveTournaments.Set(float64(len(e.tournaments)))
		e.logger.Info("tournament deleted", zap.String("tournamentId", t.ID))
		return
	}
	e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentLeft, Payload: map[string]any{
		"tournamentId": t.ID,
		"numPlayers":   len(t.Players),
	}})
}

// startTournamentLocked shuffles the four players into two semifinal
// pairings. A pairing with an unreachable player resolves immediately as a
// walkover so the bracket keeps progressing.
func (e *Engine) startTournamentLocked(t *Tournament) {
	t.startTask = nil
	if t.Status != TourneyWaiting || len(t.Players) != tournamentSize {
		return
	}
	t.Status = TourneySemifinal

	seeded := make([]string, len(t.Players))
	copy(seeded, t.Players)
	e.rand.Shuffle(len(seeded), func(i, j int) { seeded[i], seeded[j] = seeded[j], seeded[i] })

	semi1 := e.seedRoundLocked(t, seeded[0], seeded[1])
	semi2 := e.seedRoundLocked(t, seeded[2], seeded[3])

	e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentSemis, Payload: models.SemiFinalsEvt{
		Semi1: models.BracketPairing{Players: []string{semi1.P1, semi1.P2}, GameID: semi1.ID},
		Semi2: models.BracketPairing{Players: []string{semi2.P1, semi2.P2}, GameID: semi2.ID},
	}})
	e.broadcastLocked(semi1, e.configEventLocked(semi1))
	e.broadcastLocked(semi2, e.configEventLocked(semi2))
	e.logger.Info("tournament started", zap.String("tournamentId", t.ID))

	// Walkovers resolve after both matches exist so the final transition
	// sees a complete round list.
	for _, m := range []*Match{semi1, semi2} {
		e.resolveWalkoverLocked(m)
	}
}

func (e *Engine) seedRoundLocked(t *Tournament, p1, p2 string) *Match {
	m := e.createMatchLocked("", p1, p2, models.ModeTournament)
	m.TournamentID = t.ID
	t.Rounds = append(t.Rounds, m)
	e.attachLocked(m, p1)
	e.attachLocked(m, p2)
	return m
}

// resolveWalkoverLocked finishes a round on the spot when a participant has
// no live connection: the reachable side wins with the full score and no
// tick loop ever runs.
func (e *Engine) resolveWalkoverLocked(m *Match) {
	if m.Status != StatusWaiting {
		return
	}
	var winner string
	switch {
	case !e.connectedLocked(m.P1):
		winner = m.P2
	case !e.connectedLocked(m.P2):
		winner = m.P1
	default:
		return
	}
	if slot := m.slotOf(winner); slot >= 0 {
		m.State.Paddles[slot].Score = e.game.WinScore
	}
	e.logger.Info("walkover", zap.String("gameId", m.ID), zap.String("winner", winner))
	e.finishLocked(m, winner, models.ReasonWalkover)
}

// tournamentMatchFinishedLocked advances the bracket when one of its rounds
// reaches a terminal state.
func (e *Engine) tournamentMatchFinishedLocked(m *Match) {
	t, ok := e.tournaments[m.TournamentID]
	if !ok || t.Status == TourneyCanceled {
		return
	}

	switch t.Status {
	case TourneySemifinal:
		if len(t.Rounds) < 2 || t.Rounds[0].Status != StatusFinished || t.Rounds[1].Status != StatusFinished {
			return
		}
		t.Status = TourneyFinal
		w1, w2 := t.Rounds[0].Winner, t.Rounds[1].Winner
		final := e.seedRoundLocked(t, w1, w2)
		e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentFinal, Payload: models.FinalEvt{
			Final: models.BracketPairing{Players: []string{w1, w2}, GameID: final.ID},
		}})
		e.broadcastLocked(final, e.configEventLocked(final))
		e.logger.Info("tournament final seeded", zap.String("tournamentId", t.ID), zap.String("gameId", final.ID))
		e.resolveWalkoverLocked(final)

	case TourneyFinal:
		if len(t.Rounds) < 3 || t.Rounds[2].Status != StatusFinished {
			return
		}
		t.Status = TourneyFinished
		t.Winner = t.Rounds[2].Winner
		e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentFinish, Payload: map[string]string{
			"tournamentId": t.ID,
			"winner":       t.Winner,
		}})
		e.removeTournamentLocked(t)
		e.logger.Info("tournament finished", zap.String("tournamentId", t.ID), zap.String("winner", t.Winner))
	}
}

// cancelTournamentLocked aborts the whole bracket: every unfinished round's
// loop is stopped and removed, and every participant is notified. No partial
// bracket repair is attempted.
func (e *Engine) cancelTournamentLocked(t *Tournament, reason string) {
	t.Status = TourneyCanceled
	t.startTask.cancel()
	t.startTask = nil

	for _, m := range t.Rounds {
		if m.Status == StatusFinished {
			continue
		}
		e.stopLoopLocked(m)
		e.removeMatchLocked(m)
	}
	e.sendToPlayersLocked(t.Players, models.Event{Type: models.EvtTournamentCanceled, Payload: map[string]string{
		"tournamentId": t.ID,
		"reason":       reason,
	}})
	e.removeTournamentLocked(t)
	e.logger.Info("tournament canceled", zap.String("tournamentId", t.ID), zap.String("reason", reason))
}

func (e *Engine) removeTournamentLocked(t *Tournament) {
	for _, pid := range t.Players {
		if e.playerTournament[pid] == t.ID {
			delete(e.playerTournament, pid)
		}
	}
	delete(e.tournaments, t.ID)
	metrics.ActiveTournaments.Set(float64(len(e.tournaments)))
}

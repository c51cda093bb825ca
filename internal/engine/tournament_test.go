package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pong/internal/models"
)

func fillTournament(t *testing.T, e *Engine, players ...string) models.TournamentInfo {
	t.Helper()
	info, err := e.CreateTournament(players[0], "friday night")
	require.NoError(t, err)
	for _, pid := range players[1:] {
		_, err := e.JoinTournament(info.TournamentID, pid)
		require.NoError(t, err)
	}
	return info
}

func (e *Engine) tournamentStatus(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tournaments[id]; ok {
		return t.Status
	}
	return ""
}

func (e *Engine) tournamentRounds(id string) []*Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tournaments[id]; ok {
		return append([]*Match(nil), t.Rounds...)
	}
	return nil
}

// finishRound drives an ongoing round to a forfeit win for the given player.
func finishRound(t *testing.T, e *Engine, m *Match, winner string) {
	t.Helper()
	readyAndStart(t, e, m)
	require.NoError(t, e.LeaveMatch(m.ID, m.opponentOf(winner)))
}

func TestCreateTournament(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, sink := connect(e, "p1")

	info, err := e.CreateTournament("p1", "friday night")
	require.NoError(t, err)
	assert.Equal(t, TourneyWaiting, info.Status)
	assert.Equal(t, 1, info.NumPlayers)
	assert.True(t, sink.has(models.EvtTournamentCreated))

	_, err = e.CreateTournament("p1", "again")
	assert.ErrorIs(t, err, ErrAlreadyInTournament)
}

func TestJoinTournamentLimits(t *testing.T) {
	e := newTestEngine(t, Options{})
	for _, pid := range []string{"p1", "p2", "p3", "p4", "p5"} {
		connect(e, pid)
	}
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	_, err := e.JoinTournament(info.TournamentID, "p5")
	// By the time the fifth player tries, the bracket is either full or has
	// already started; both are join failures.
	assert.Error(t, err)

	_, err = e.JoinTournament("nope", "p5")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentEntryRejectedWhileBusy(t *testing.T) {
	e := newTestEngine(t, Options{})
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		connect(e, pid)
	}
	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	require.NoError(t, e.JoinRandom("p3")) // stays queued, no pair yet

	_, err := e.CreateTournament("p1", "t")
	assert.ErrorIs(t, err, ErrAlreadyInMatch)
	_, err = e.CreateTournament("p3", "t")
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	info, err := e.CreateTournament("p4", "t")
	require.NoError(t, err)
	_, err = e.JoinTournament(info.TournamentID, "p2")
	assert.ErrorIs(t, err, ErrAlreadyInMatch)
	_, err = e.JoinTournament(info.TournamentID, "p3")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestTournamentMembersCannotStartOtherMatches(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")
	_, err := e.CreateTournament("p1", "t")
	require.NoError(t, err)

	assert.ErrorIs(t, e.JoinRandom("p1"), ErrAlreadyInTournament)
	_, err = e.JoinLocal("p1")
	assert.ErrorIs(t, err, ErrAlreadyInTournament)
	_, err = e.StartAIMatch("p1", "")
	assert.ErrorIs(t, err, ErrAlreadyInTournament)
}

// A player already in a live room must keep that room's binding through any
// tournament attempt, so a later disconnect still forfeits it to the opponent.
func TestOngoingMatchSurvivesTournamentAttempt(t *testing.T) {
	finished := make(chan models.MatchSummary, 1)
	e := newTestEngine(t, Options{
		OnMatchFinished: func(s models.MatchSummary) { finished <- s },
	})
	c1, _ := connect(e, "p1")
	_, sink2 := connect(e, "p2")
	for _, pid := range []string{"p3", "p4", "p5"} {
		connect(e, pid)
	}

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	info := fillTournament(t, e, "p3", "p4", "p5")
	_, err := e.JoinTournament(info.TournamentID, "p1")
	assert.ErrorIs(t, err, ErrAlreadyInMatch)
	assert.Equal(t, m, e.matchOf("p1"), "room binding untouched by the rejected join")

	e.Unregister("p1", c1)
	select {
	case summary := <-finished:
		assert.Equal(t, "p2", summary.Winner)
		assert.Equal(t, models.ReasonForfeit, summary.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect did not forfeit the match")
	}
	assert.True(t, sink2.has(models.EvtGameFinish))
	assert.Equal(t, 0, e.matchCount())
}

func TestLeaveWaitingTournamentShrinks(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")
	_, sink2 := connect(e, "p2")

	info, err := e.CreateTournament("p1", "t")
	require.NoError(t, err)
	_, err = e.JoinTournament(info.TournamentID, "p2")
	require.NoError(t, err)

	require.NoError(t, e.LeaveTournament(info.TournamentID, "p1"))
	got, err := e.Tournament(info.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumPlayers)
	assert.True(t, sink2.has(models.EvtTournamentLeft))

	// Last player out deletes the bracket and is told so.
	require.NoError(t, e.LeaveTournament(info.TournamentID, "p2"))
	_, err = e.Tournament(info.TournamentID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.True(t, sink2.has(models.EvtTournamentDeleted))
}

func TestFourthJoinStartsSemifinals(t *testing.T) {
	e := newTestEngine(t, Options{})
	sinks := make(map[string]*eventSink)
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		_, sinks[pid] = connect(e, pid)
	}
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == TourneySemifinal
	}, 2*time.Second, 5*time.Millisecond)

	rounds := e.tournamentRounds(info.TournamentID)
	require.Len(t, rounds, 2)
	for _, m := range rounds {
		assert.Equal(t, models.ModeTournament, m.Mode)
		assert.Equal(t, info.TournamentID, m.TournamentID)
	}
	for pid, sink := range sinks {
		assert.True(t, sink.has(models.EvtTournamentSemis), "missing bracket event for %s", pid)
	}
}

func TestTournamentRunsToFinal(t *testing.T) {
	e := newTestEngine(t, Options{})
	sinks := make(map[string]*eventSink)
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		_, sinks[pid] = connect(e, pid)
	}
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == TourneySemifinal
	}, 2*time.Second, 5*time.Millisecond)

	rounds := e.tournamentRounds(info.TournamentID)
	require.Len(t, rounds, 2)
	// P1 of each semifinal wins by the opponent conceding.
	finishRound(t, e, rounds[0], rounds[0].P1)
	finishRound(t, e, rounds[1], rounds[1].P1)

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == TourneyFinal
	}, 2*time.Second, 5*time.Millisecond)

	rounds = e.tournamentRounds(info.TournamentID)
	require.Len(t, rounds, 3)
	final := rounds[2]
	assert.ElementsMatch(t,
		[]string{rounds[0].Winner, rounds[1].Winner},
		[]string{final.P1, final.P2})

	finishRound(t, e, final, final.P1)

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == ""
	}, 2*time.Second, 5*time.Millisecond)

	for pid, sink := range sinks {
		assert.True(t, sink.has(models.EvtTournamentFinal), "missing final event for %s", pid)
		assert.True(t, sink.has(models.EvtTournamentFinish), "missing finish event for %s", pid)
	}
	assert.Equal(t, 0, e.matchCount())
}

func TestWalkoverForUnreachablePlayer(t *testing.T) {
	summaries := make(chan models.MatchSummary, 4)
	e := newTestEngine(t, Options{
		OnMatchFinished: func(s models.MatchSummary) { summaries <- s },
	})
	connect(e, "p1")
	connect(e, "p2")
	connect(e, "p3")
	// p4 joins over HTTP but never opens a websocket.
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) != TourneyWaiting
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case summary := <-summaries:
		assert.Equal(t, models.ReasonWalkover, summary.Reason)
		assert.NotEqual(t, "p4", summary.Winner)
		assert.Equal(t, e.game.WinScore, max(summary.Score1, summary.Score2))
	case <-time.After(2 * time.Second):
		t.Fatal("expected a walkover summary")
	}
}

func TestDisconnectCancelsStartedTournament(t *testing.T) {
	e := newTestEngine(t, Options{})
	sinks := make(map[string]*eventSink)
	clients := make(map[string]*Client)
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		clients[pid], sinks[pid] = connect(e, pid)
	}
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == TourneySemifinal
	}, 2*time.Second, 5*time.Millisecond)

	e.Unregister("p3", clients["p3"])

	assert.Equal(t, "", e.tournamentStatus(info.TournamentID))
	assert.Equal(t, 0, e.matchCount(), "every unfinished round is removed")
	for _, pid := range []string{"p1", "p2", "p4"} {
		assert.True(t, sinks[pid].has(models.EvtTournamentCanceled), "missing cancel event for %s", pid)
	}

	// Everyone left standing can immediately queue again.
	assert.NoError(t, e.JoinRandom("p1"))
}

func TestLeaveStartedTournamentCancels(t *testing.T) {
	e := newTestEngine(t, Options{})
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		connect(e, pid)
	}
	info := fillTournament(t, e, "p1", "p2", "p3", "p4")

	require.Eventually(t, func() bool {
		return e.tournamentStatus(info.TournamentID) == TourneySemifinal
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.LeaveTournament(info.TournamentID, "p2"))
	_, err := e.Tournament(info.TournamentID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.Equal(t, 0, e.matchCount())
}

package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pong/internal/config"
	"pong/internal/models"
)

// eventSink collects everything sent to one fake connection.
type eventSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *eventSink) add(evt models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) has(eventType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range s.events {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

func testGame() config.Game {
	g := config.DefaultGame()
	g.MatchStartDelayMS = 20
	g.TournamentStartDelayMS = 20
	return g
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Game.TickRateHz == 0 {
		opts.Game = testGame()
	}
	return New(opts)
}

// connect registers a hooked client for a player and returns both.
func connect(e *Engine, playerID string) (*Client, *eventSink) {
	c := NewClient(nil)
	sink := &eventSink{}
	c.SetSendHook(sink.add)
	e.Register(playerID, c)
	return c, sink
}

func (e *Engine) matchOf(playerID string) *Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mid, ok := e.playerMatch[playerID]; ok {
		return e.matches[mid]
	}
	return nil
}

func (e *Engine) matchStatus(m *Match) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return m.Status
}

func (e *Engine) matchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.matches)
}

// readyAndStart drives a waiting two-player match into the ongoing state.
func readyAndStart(t *testing.T, e *Engine, m *Match) {
	t.Helper()
	for _, pid := range m.realPlayers() {
		require.NoError(t, e.SetReady(m.ID, pid))
	}
	require.Eventually(t, func() bool {
		return e.matchStatus(m) == StatusOngoing
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRegisterReplacesStaleConnection(t *testing.T) {
	e := newTestEngine(t, Options{})
	old, _ := connect(e, "p1")
	fresh, sink := connect(e, "p1")

	// The close event from the replaced socket must not cascade.
	e.Unregister("p1", old)
	e.mu.Lock()
	_, stillThere := e.conns["p1"]
	e.mu.Unlock()
	assert.True(t, stillThere, "fresh connection survives stale close")

	e.mu.Lock()
	e.sendToPlayerLocked("p1", models.Event{Type: "probe"})
	e.mu.Unlock()
	assert.True(t, sink.has("probe"))

	e.Unregister("p1", fresh)
	e.mu.Lock()
	_, stillThere = e.conns["p1"]
	e.mu.Unlock()
	assert.False(t, stillThere)
}

func TestReadyGateAndCountdown(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")
	connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))

	m := e.matchOf("p1")
	require.NotNil(t, m)

	require.NoError(t, e.SetReady(m.ID, "p1"))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StatusWaiting, e.matchStatus(m), "one ready player is not enough")

	require.NoError(t, e.SetReady(m.ID, "p2"))
	require.Eventually(t, func() bool {
		return e.matchStatus(m) == StatusOngoing
	}, 2*time.Second, 5*time.Millisecond)

	e.Depart("p1")
}

func TestGameStartBroadcast(t *testing.T) {
	e := newTestEngine(t, Options{})
	_, sink1 := connect(e, "p1")
	_, sink2 := connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	assert.True(t, sink1.has(models.EvtGameStart))
	assert.True(t, sink2.has(models.EvtGameStart))
	assert.True(t, sink1.has(models.EvtPlayerReady))

	e.Depart("p1")
}

func TestDisconnectForfeitsOngoingMatch(t *testing.T) {
	finished := make(chan models.MatchSummary, 1)
	e := newTestEngine(t, Options{
		OnMatchFinished: func(s models.MatchSummary) { finished <- s },
	})
	_, sink1 := connect(e, "p1")
	c2, _ := connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	e.Unregister("p2", c2)

	select {
	case summary := <-finished:
		assert.Equal(t, "p1", summary.Winner)
		assert.Equal(t, models.ReasonForfeit, summary.Reason)
		assert.Equal(t, e.game.WinScore, summary.Score1)
	case <-time.After(2 * time.Second):
		t.Fatal("no match summary emitted")
	}

	assert.True(t, sink1.has(models.EvtPlayerDisconnected))
	assert.True(t, sink1.has(models.EvtGameFinish))
	assert.Equal(t, 0, e.matchCount())
}

func TestExplicitLeaveConcedesOngoingMatch(t *testing.T) {
	finished := make(chan models.MatchSummary, 1)
	e := newTestEngine(t, Options{
		OnMatchFinished: func(s models.MatchSummary) { finished <- s },
	})
	connect(e, "p1")
	connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	require.NoError(t, e.LeaveMatch(m.ID, "p1"))

	summary := <-finished
	assert.Equal(t, "p2", summary.Winner)
	assert.Equal(t, models.ReasonForfeit, summary.Reason)
}

func TestLeaveBeforeStartDissolvesWithoutWinner(t *testing.T) {
	finished := make(chan models.MatchSummary, 1)
	e := newTestEngine(t, Options{
		OnMatchFinished: func(s models.MatchSummary) { finished <- s },
	})
	connect(e, "p1")
	_, sink2 := connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)

	require.NoError(t, e.LeaveMatch(m.ID, "p1"))

	assert.Equal(t, 0, e.matchCount())
	assert.True(t, sink2.has(models.EvtPlayerDisconnected))
	select {
	case <-finished:
		t.Fatal("a dissolved match must not emit a summary")
	case <-time.After(50 * time.Millisecond):
	}

	// Both players are free to queue again.
	assert.NoError(t, e.JoinRandom("p1"))
}

func TestLocalMatchInputShapes(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")

	m, err := e.JoinLocal("p1")
	require.NoError(t, err)
	readyAndStart(t, e, m)

	// Flat input is the wrong shape for local mode.
	err = e.ApplyInput(m.ID, "p1", models.Input{Up: true})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = e.ApplyInput(m.ID, "p1", models.Input{
		Left:  &models.PaddleInput{Up: true},
		Right: &models.PaddleInput{Down: true},
	})
	assert.NoError(t, err)

	e.mu.Lock()
	assert.True(t, m.State.Paddles[sideLeft].Up)
	assert.True(t, m.State.Paddles[sideRight].Down)
	e.mu.Unlock()

	e.Depart("p1")
	assert.Equal(t, 0, e.matchCount())
}

func TestDualInputRejectedInRandomMode(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")
	connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	err := e.ApplyInput(m.ID, "p1", models.Input{Left: &models.PaddleInput{Up: true}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = e.ApplyInput(m.ID, "outsider", models.Input{Up: true})
	assert.ErrorIs(t, err, ErrNotInMatch)

	assert.NoError(t, e.ApplyInput(m.ID, "p1", models.Input{Up: true}))
	e.Depart("p1")
}

func TestInputIgnoredBeforeStart(t *testing.T) {
	e := newTestEngine(t, Options{})
	connect(e, "p1")
	connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)

	// No error, no effect: the match has not started.
	assert.NoError(t, e.ApplyInput(m.ID, "p1", models.Input{Up: true}))
	e.mu.Lock()
	assert.False(t, m.State.Paddles[sideLeft].Up)
	e.mu.Unlock()
}

func TestScoreWinEmitsSummary(t *testing.T) {
	finished := make(chan models.MatchSummary, 1)
	game := testGame()
	game.WinScore = 1
	e := newTestEngine(t, Options{
		Game:            game,
		OnMatchFinished: func(s models.MatchSummary) { finished <- s },
	})
	_, sink1 := connect(e, "p1")
	connect(e, "p2")

	require.NoError(t, e.JoinRandom("p1"))
	require.NoError(t, e.JoinRandom("p2"))
	m := e.matchOf("p1")
	require.NotNil(t, m)
	readyAndStart(t, e, m)

	// Park the ball past the left goal line so the next tick scores and,
	// with WinScore of 1, finishes the match in the same tick.
	e.mu.Lock()
	m.State.Ball.X = -m.State.Ball.R - 10
	m.State.Ball.VX = -m.State.BallSpeed
	m.State.Ball.Y = 100
	e.mu.Unlock()

	select {
	case summary := <-finished:
		assert.Equal(t, "p2", summary.Winner)
		assert.Equal(t, models.ReasonScore, summary.Reason)
		assert.Equal(t, 1, summary.Score2)
	case <-time.After(2 * time.Second):
		t.Fatal("match did not finish on score")
	}
	assert.True(t, sink1.has(models.EvtGameFinish))
	assert.Equal(t, 0, e.matchCount())
}

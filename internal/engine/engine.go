package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pong/internal/config"
	"pong/internal/metrics"
	"pong/internal/models"
)

var (
	ErrNotConnected        = errors.New("player has no live connection")
	ErrMatchNotFound       = errors.New("match not found")
	ErrNotInMatch          = errors.New("player is not part of this match")
	ErrAlreadyInMatch      = errors.New("player is already in a match")
	ErrAlreadyQueued       = errors.New("player is waiting in the matchmaking queue")
	ErrInvalidInput        = errors.New("input shape does not match the game mode")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrTournamentStarted   = errors.New("tournament already started")
	ErrAlreadyInTournament = errors.New("player is already in an active tournament")
	ErrInviteNotFound      = errors.New("invite not found")
	ErrNotYourInvite       = errors.New("invite addressed to another player")
	ErrSelfInvite          = errors.New("cannot invite yourself")
)

// Options configures a new Engine. Zero-value fields fall back to defaults,
// so tests can construct a minimal engine without redis or a bot process.
type Options struct {
	Logger   *zap.Logger
	Game     config.Game
	AIBotURL string
	// DialAI opens the bridge connection to the external AI process.
	// Tests replace it to avoid a network dial.
	DialAI func(url string) (*websocket.Conn, error)
	// OnMatchFinished is invoked (on its own goroutine) once per finished
	// match; main wires it to the redis publisher.
	OnMatchFinished func(models.MatchSummary)
}

// Engine owns every shared registry: connections, matches, the matchmaking
// queue, tournaments and pending invites. One mutex guards all of them, so
// queue pairing, tick advancement, tournament transitions and disconnect
// handling are atomic with respect to each other.
type Engine struct {
	mu     sync.Mutex
	logger *zap.Logger
	game   config.Game

	tickInterval         time.Duration
	matchStartDelay      time.Duration
	tournamentStartDelay time.Duration

	conns            map[string]*Client
	matches          map[string]*Match
	playerMatch      map[string]string
	queue            []string
	queued           map[string]struct{}
	tournaments      map[string]*Tournament
	playerTournament map[string]string
	invites          map[string]*Invite

	aiBotURL   string
	dialAI     func(url string) (*websocket.Conn, error)
	onFinished func(models.MatchSummary)

	rand *rand.Rand
}

func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	game := opts.Game
	if game.TickRateHz == 0 {
		game = config.DefaultGame()
	}
	dial := opts.DialAI
	if dial == nil {
		dial = func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		}
	}

	return &Engine{
		logger:               logger,
		game:                 game,
		tickInterval:         time.Second / time.Duration(game.TickRateHz),
		matchStartDelay:      time.Duration(game.MatchStartDelayMS) * time.Millisecond,
		tournamentStartDelay: time.Duration(game.TournamentStartDelayMS) * time.Millisecond,
		conns:                make(map[string]*Client),
		matches:              make(map[string]*Match),
		playerMatch:          make(map[string]string),
		queued:               make(map[string]struct{}),
		tournaments:          make(map[string]*Tournament),
		playerTournament:     make(map[string]string),
		invites:              make(map[string]*Invite),
		aiBotURL:             opts.AIBotURL,
		dialAI:               dial,
		onFinished:           opts.OnMatchFinished,
		rand:                 rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register binds a player to a live connection. A second connection for the
// same player replaces the old one: the old socket is closed and every match
// attachment is swapped to the new socket, so stale connections can never
// receive duplicate broadcasts.
func (e *Engine) Register(playerID string, c *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.conns[playerID]; ok && old != c {
		old.Close()
		for _, m := range e.matches {
			if cur, ok := m.clients[playerID]; ok && cur == old {
				m.clients[playerID] = c
			}
		}
	}
	e.conns[playerID] = c
	metrics.ConnectedPlayers.Set(float64(len(e.conns)))
	e.logger.Info("player connected", zap.String("playerId", playerID))
}

// Unregister drops the mapping for a closed connection and runs the full
// departure cascade. A close event from an already-replaced socket is ignored.
func (e *Engine) Unregister(playerID string, c *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.conns[playerID]
	if !ok || cur != c {
		return
	}
	delete(e.conns, playerID)
	metrics.ConnectedPlayers.Set(float64(len(e.conns)))
	e.logger.Info("player disconnected", zap.String("playerId", playerID))
	e.departLocked(playerID)
}

// Depart handles an explicit player_leave: the same cascade as a disconnect,
// but the socket itself stays open and registered.
func (e *Engine) Depart(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.departLocked(playerID)
}

func (e *Engine) connectedLocked(playerID string) bool {
	_, ok := e.conns[playerID]
	return ok
}

// busyLocked reports whether the player already holds a match or queue slot.
// Every match-creating entry point checks it, so a player can never carry two
// bindings at once and createMatchLocked never overwrites one.
func (e *Engine) busyLocked(playerID string) error {
	if _, ok := e.playerMatch[playerID]; ok {
		return ErrAlreadyInMatch
	}
	if _, ok := e.queued[playerID]; ok {
		return ErrAlreadyQueued
	}
	return nil
}

func (e *Engine) sendToPlayerLocked(playerID string, evt models.Event) {
	if c, ok := e.conns[playerID]; ok {
		c.Send(evt)
	}
}

func (e *Engine) sendToPlayersLocked(playerIDs []string, evt models.Event) {
	for _, pid := range playerIDs {
		e.sendToPlayerLocked(pid, evt)
	}
}

func (e *Engine) broadcastLocked(m *Match, evt models.Event) {
	for _, c := range m.clients {
		c.Send(evt)
	}
}

func (e *Engine) emitFinishedLocked(summary models.MatchSummary) {
	metrics.MatchesFinished.WithLabelValues(summary.Reason).Inc()
	if e.onFinished != nil {
		// Persistence is I/O; never block the engine on it.
		go e.onFinished(summary)
	}
}

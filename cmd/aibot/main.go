package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pong/internal/models"
	"pong/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// botProfile tunes how well the paddle tracks the ball. deadzone is the
// vertical distance the bot tolerates before moving; reactivity is the
// fraction of snapshots it acts on at all.
type botProfile struct {
	deadzone   float64
	reactivity float64
}

var profiles = map[string]botProfile{
	models.DifficultyEasy:   {deadzone: 48, reactivity: 0.6},
	models.DifficultyMedium: {deadzone: 24, reactivity: 0.85},
	models.DifficultyHard:   {deadzone: 8, reactivity: 1.0},
}

// bot plays the right-hand paddle of a single match over one websocket. The
// game server dials us with the match ID and difficulty in the query string;
// everything after that is the ordinary player protocol.
type bot struct {
	conn    *websocket.Conn
	gameID  string
	profile botProfile
	logger  *zap.Logger

	paddleH float64
}

func (b *bot) run() {
	for {
		var frame models.WSFrame
		if err := b.conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case models.EvtGameConfig:
			var cfg models.GameConfig
			if err := json.Unmarshal(frame.Payload, &cfg); err != nil {
				continue
			}
			b.paddleH = cfg.Paddle.H
		case models.EvtGameUpdate:
			var snap models.GameSnapshot
			if err := json.Unmarshal(frame.Payload, &snap); err != nil {
				continue
			}
			b.react(snap)
		case models.EvtGameFinish:
			b.logger.Info("match finished", zap.String("gameId", b.gameID))
			return
		}
	}
}

// react chases the ball with the paddle center, within the profile's
// tolerance.
func (b *bot) react(snap models.GameSnapshot) {
	if rand.Float64() > b.profile.reactivity {
		return
	}
	paddle := snap.Paddles[1]
	center := paddle.Y + b.paddleH/2
	diff := snap.Ball.Y - center

	var input models.Input
	switch {
	case diff < -b.profile.deadzone:
		input.Up = true
	case diff > b.profile.deadzone:
		input.Down = true
	default:
		// Close enough, release both keys.
	}

	b.conn.WriteJSON(models.WSFrame{
		Type:    models.MsgGameUpdate,
		Payload: mustMarshal(models.GameUpdateReq{GameID: b.gameID, PlayerID: "ai", Input: input}),
	})
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func wsHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("gameId")
		if gameID == "" {
			utils.JSONError(w, http.StatusBadRequest, "gameId required")
			return
		}
		profile, ok := profiles[r.URL.Query().Get("difficulty")]
		if !ok {
			profile = profiles[models.DifficultyMedium]
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		logger.Info("bot joined", zap.String("gameId", gameID))
		b := &bot{
			conn:    conn,
			gameID:  gameID,
			profile: profile,
			logger:  logger,
			paddleH: 100,
		}
		b.run()
	}
}

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8086"
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.HandleFunc("/ws", wsHandler(logger))

	logger.Info("ai bot listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

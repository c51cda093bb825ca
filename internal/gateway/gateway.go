package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pong/internal/engine"
	"pong/internal/models"
	"pong/internal/utils"
)

// Gateway owns the websocket endpoint: it authenticates the upgrade, binds
// the connection into the engine's registry and pumps inbound frames to the
// right engine operation.
type Gateway struct {
	engine   *engine.Engine
	secret   string
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(eng *engine.Engine, secret string, logger *zap.Logger) *Gateway {
	return &Gateway{
		engine: eng,
		secret: secret,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsHandler upgrades the connection. The client authenticates with
// ?token=<jwt>; browsers cannot set headers on websocket dials.
func (g *Gateway) WsHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.JSONError(w, http.StatusUnauthorized, "token required")
		return
	}
	claims, err := utils.VerifyTokenString(token, g.secret)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	playerID, err := utils.GetUserIDFromClaims(claims)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := engine.NewClient(conn)
	g.engine.Register(playerID, client)
	g.readLoop(playerID, client)
}

func (g *Gateway) readLoop(playerID string, client *engine.Client) {
	defer func() {
		g.engine.Unregister(playerID, client)
		client.Close()
	}()

	for {
		var frame models.WSFrame
		if err := client.Conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read error", zap.String("playerId", playerID), zap.Error(err))
			}
			return
		}
		g.dispatch(playerID, client, frame)
	}
}

// dispatch routes one inbound frame. Malformed payloads and unknown types
// are protocol errors: logged and ignored, the connection stays open.
// Precondition violations come back as explicit error events.
func (g *Gateway) dispatch(playerID string, client *engine.Client, frame models.WSFrame) {
	switch frame.Type {
	case models.MsgJoinRandom:
		client.Send(models.Event{Type: models.EvtJoinRandomAck})
		if err := g.engine.JoinRandom(playerID); err != nil {
			client.Send(models.Event{Type: models.EvtError, Payload: map[string]string{"message": err.Error()}})
		}

	case models.MsgLeaveRandom:
		g.engine.LeaveRandom(playerID)

	case models.MsgJoinLocal:
		client.Send(models.Event{Type: models.EvtJoinLocalAck})
		if _, err := g.engine.JoinLocal(playerID); err != nil {
			client.Send(models.Event{Type: models.EvtError, Payload: map[string]string{"message": err.Error()}})
		}

	case models.MsgJoinAI:
		var req models.JoinAIReq
		if frame.Payload != nil {
			if err := json.Unmarshal(frame.Payload, &req); err != nil {
				g.logger.Warn("malformed join_ai payload", zap.String("playerId", playerID), zap.Error(err))
				return
			}
		}
		client.Send(models.Event{Type: models.EvtJoinAIAck})
		if _, err := g.engine.StartAIMatch(playerID, req.Difficulty); err != nil {
			g.logger.Warn("ai match failed", zap.String("playerId", playerID), zap.Error(err))
			client.Send(models.Event{Type: models.EvtError, Payload: map[string]string{"message": "could not start AI match"}})
		}

	case models.MsgGameUpdate:
		var req models.GameUpdateReq
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			g.logger.Warn("malformed game_update payload", zap.String("playerId", playerID), zap.Error(err))
			return
		}
		// The authenticated identity wins over whatever the payload claims.
		if err := g.engine.ApplyInput(req.GameID, playerID, req.Input); err != nil {
			g.logger.Debug("input rejected", zap.String("playerId", playerID), zap.Error(err))
		}

	case models.MsgPlayerReady:
		var req models.GameRef
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			g.logger.Warn("malformed player_ready payload", zap.String("playerId", playerID), zap.Error(err))
			return
		}
		if err := g.engine.SetReady(req.GameID, playerID); err != nil {
			client.Send(models.Event{Type: models.EvtError, Payload: map[string]string{"message": err.Error()}})
		}

	case models.MsgLeaveMatch:
		var req models.GameRef
		if err := json.Unmarshal(frame.Payload, &req); err != nil {
			g.logger.Warn("malformed player_leave_match payload", zap.String("playerId", playerID), zap.Error(err))
			return
		}
		if err := g.engine.LeaveMatch(req.GameID, playerID); err != nil {
			client.Send(models.Event{Type: models.EvtError, Payload: map[string]string{"message": err.Error()}})
		}

	case models.MsgPlayerLeave:
		g.engine.Depart(playerID)

	default:
		g.logger.Warn("unknown message type", zap.String("playerId", playerID), zap.String("type", frame.Type))
	}
}

package models

import "encoding/json"

// Match modes
const (
	ModeLocal      = "local"
	ModeRandom     = "random"
	ModeAI         = "ai_opponent"
	ModeFriend     = "friend"
	ModeTournament = "tournament"
)

// AI difficulty levels
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Inbound frame types
const (
	MsgJoinRandom  = "join_random"
	MsgLeaveRandom = "leave_random"
	MsgJoinLocal   = "join_local"
	MsgJoinAI      = "join_ai-opponent"
	MsgGameUpdate  = "game_update"
	MsgPlayerReady = "player_ready"
	MsgLeaveMatch  = "player_leave_match"
	MsgPlayerLeave = "player_leave"
)

// Outbound event types
const (
	EvtJoinRandomAck      = "join_random_ack"
	EvtJoinLocalAck       = "join_local_ack"
	EvtJoinAIAck          = "join_ai-opponent_ack"
	EvtOpponentFound      = "random_opponent_found"
	EvtGameConfig         = "game_config"
	EvtGameStart          = "game_start"
	EvtGameUpdate         = "game_update"
	EvtGameFinish         = "game_finish"
	EvtPlayerDisconnected = "player_disconnected"
	EvtPlayerReady        = "player_ready"
	EvtGameInvite         = "game_invite"
	EvtInviteDeclined     = "invite_declined"
	EvtTournamentCreated  = "tournament_created"
	EvtTournamentJoined   = "tournament_player-joined"
	EvtTournamentLeft     = "tournament_player-left"
	EvtTournamentDeleted  = "tournament_deleted"
	EvtTournamentSemis    = "tournament_semi-finals"
	EvtTournamentFinal    = "tournament_final"
	EvtTournamentFinish   = "tournament_finish"
	EvtTournamentCanceled = "tournament_canceled"
	EvtError              = "error"
)

// WSFrame is the envelope for every inbound websocket message.
type WSFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is the envelope for every outbound websocket message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// PaddleInput carries the direction flags for one paddle.
type PaddleInput struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// Input is the per-player input payload. Single-paddle modes use the flat
// Up/Down flags; local mode uses Left/Right, one sub-input per paddle.
type Input struct {
	Up    bool         `json:"up,omitempty"`
	Down  bool         `json:"down,omitempty"`
	Left  *PaddleInput `json:"left,omitempty"`
	Right *PaddleInput `json:"right,omitempty"`
}

// IsDual reports whether the input uses the local-mode two-paddle shape.
func (in Input) IsDual() bool { return in.Left != nil || in.Right != nil }

type GameUpdateReq struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Input    Input  `json:"input"`
}

type GameRef struct {
	GameID string `json:"gameId"`
}

type JoinAIReq struct {
	Difficulty string `json:"difficulty"`
}

// Snapshot shapes shared by game_config and game_update events.

type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type PaddleDims struct {
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Speed float64 `json:"speed"`
}

type PaddleSnapshot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score int     `json:"score"`
}

type BallSnapshot struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	R  float64 `json:"r"`
}

type GameSnapshot struct {
	Paddles [2]PaddleSnapshot `json:"paddles"`
	Ball    BallSnapshot      `json:"ball"`
}

type GameConfig struct {
	GameID     string            `json:"gameId"`
	Mode       string            `json:"mode"`
	Difficulty string            `json:"difficulty,omitempty"`
	Canvas     Size              `json:"canvas"`
	Paddle     PaddleDims        `json:"paddle"`
	Paddles    [2]PaddleSnapshot `json:"paddles"`
	Ball       BallSnapshot      `json:"ball"`
}

// Bracket payloads

type BracketPairing struct {
	Players []string `json:"players"`
	GameID  string   `json:"gameId"`
}

type SemiFinalsEvt struct {
	Semi1 BracketPairing `json:"semi1"`
	Semi2 BracketPairing `json:"semi2"`
}

type FinalEvt struct {
	Final BracketPairing `json:"final"`
}

// HTTP request/response shapes

type CreateTournamentReq struct {
	Title string `json:"title"`
}

type TournamentRef struct {
	TournamentID string `json:"tournamentId"`
}

type TournamentInfo struct {
	TournamentID string   `json:"tournamentId"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	Players      []string `json:"players"`
	NumPlayers   int      `json:"numPlayers"`
	Winner       string   `json:"winner,omitempty"`
}

type InviteReq struct {
	To string `json:"to"`
}

type UserStats struct {
	UserID  string `json:"userId"`
	Played  int    `json:"played"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	Points  int    `json:"points"`
	Against int    `json:"pointsAgainst"`
}

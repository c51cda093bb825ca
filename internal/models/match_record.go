package models

import (
	"time"

	"gorm.io/gorm"
)

// Finish reasons carried on MatchSummary.Reason.
const (
	ReasonScore    = "score"
	ReasonForfeit  = "forfeit"
	ReasonWalkover = "walkover"
)

// MatchSummary is the event published to Redis once per finished match.
type MatchSummary struct {
	MatchID      string    `json:"matchId"`
	Mode         string    `json:"mode"`
	Player1      string    `json:"player1"`
	Player2      string    `json:"player2"`
	Winner       string    `json:"winner"`
	Score1       int       `json:"score1"`
	Score2       int       `json:"score2"`
	Reason       string    `json:"reason"`
	TournamentID string    `json:"tournamentId,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	DurationSec  int       `json:"durationSeconds"`
}

// MatchRecord is the persisted row for a completed match.
type MatchRecord struct {
	gorm.Model
	MatchID      string    `gorm:"not null;index" json:"matchId"`
	Mode         string    `gorm:"not null" json:"mode"`
	Player1      string    `gorm:"not null;index" json:"player1"`
	Player2      string    `gorm:"not null;index" json:"player2"`
	Winner       string    `json:"winner"`
	Score1       int       `json:"score1"`
	Score2       int       `json:"score2"`
	Reason       string    `json:"reason"`
	TournamentID string    `gorm:"index" json:"tournamentId,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	DurationSec  int       `json:"durationSeconds"`
}

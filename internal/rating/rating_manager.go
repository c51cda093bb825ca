package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pong/internal/models"
)

const (
	// K-factors for Elo calculation
	KFactorNew         = 32.0 // Players with < 5 matches
	KFactorExperienced = 24.0 // Players with >= 5 matches

	DefaultRating = 1500.0

	playerRatingPrefix = "player_rating:"
	ratingChannel      = "rating_updates"
)

// Manager handles Elo rating calculations for ranked match results.
type Manager struct {
	ctx    context.Context
	rdb    *redis.Client
	logger *zap.Logger
}

func NewManager(rdb *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		ctx:    context.Background(),
		rdb:    rdb,
		logger: logger,
	}
}

// CalculateExpectedScore returns the expected win probability given the Elo
// difference: 1 / (1 + 10^((opponent - player) / 400)).
func CalculateExpectedScore(playerRating, opponentRating float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponentRating-playerRating)/400.0))
}

// GetKFactor returns the appropriate K-factor based on matches played.
func GetKFactor(matchesPlayed int) float64 {
	if matchesPlayed < 5 {
		return KFactorNew
	}
	return KFactorExperienced
}

// CalculateNewRating applies one result. outcome is 1 for a win, 0 for a
// loss. Ratings are clamped to [500, 3000].
func CalculateNewRating(currentRating, opponentRating, outcome float64, matchesPlayed int) float64 {
	expected := CalculateExpectedScore(currentRating, opponentRating)
	newRating := currentRating + GetKFactor(matchesPlayed)*(outcome-expected)

	if newRating < 500 {
		newRating = 500
	}
	if newRating > 3000 {
		newRating = 3000
	}
	return newRating
}

// PlayerRating is a player's stored rating state.
type PlayerRating struct {
	PlayerID      string  `json:"playerId"`
	Rating        float64 `json:"rating"`
	MatchesPlayed int     `json:"matchesPlayed"`
}

// RatingUpdate is published once per player per processed match.
type RatingUpdate struct {
	PlayerID       string    `json:"playerId"`
	OldRating      float64   `json:"oldRating"`
	NewRating      float64   `json:"newRating"`
	Change         float64   `json:"change"`
	OpponentRating float64   `json:"opponentRating"`
	MatchID        string    `json:"matchId"`
	Timestamp      time.Time `json:"timestamp"`
}

// GetRating retrieves a player's rating from Redis, or the default for a
// player never seen before.
func (m *Manager) GetRating(playerID string) (*PlayerRating, error) {
	key := playerRatingPrefix + playerID

	data, err := m.rdb.HGetAll(m.ctx, key).Result()
	if err == redis.Nil || len(data) == 0 {
		return &PlayerRating{PlayerID: playerID, Rating: DefaultRating}, nil
	}
	if err != nil {
		return nil, err
	}

	pr := &PlayerRating{PlayerID: playerID, Rating: DefaultRating}
	if s, ok := data["rating"]; ok {
		fmt.Sscanf(s, "%f", &pr.Rating)
	}
	if s, ok := data["matches_played"]; ok {
		fmt.Sscanf(s, "%d", &pr.MatchesPlayed)
	}
	return pr, nil
}

// SetRating stores a player's rating in Redis with a 90 day TTL.
func (m *Manager) SetRating(playerID string, rating float64, matchesPlayed int) error {
	key := playerRatingPrefix + playerID

	err := m.rdb.HSet(m.ctx, key, map[string]interface{}{
		"rating":         rating,
		"matches_played": matchesPlayed,
		"last_updated":   time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}

	m.rdb.Expire(m.ctx, key, 90*24*time.Hour)
	return nil
}

// ProcessMatch updates both players' ratings from one finished match. Matches
// without two human participants, or without a decided winner, are skipped.
func (m *Manager) ProcessMatch(summary models.MatchSummary) ([]*RatingUpdate, error) {
	if !isRanked(summary) {
		return nil, nil
	}

	p1, err := m.GetRating(summary.Player1)
	if err != nil {
		return nil, fmt.Errorf("failed to get player1 rating: %w", err)
	}
	p2, err := m.GetRating(summary.Player2)
	if err != nil {
		return nil, fmt.Errorf("failed to get player2 rating: %w", err)
	}

	outcome1 := 0.0
	if summary.Winner == summary.Player1 {
		outcome1 = 1.0
	}

	new1 := CalculateNewRating(p1.Rating, p2.Rating, outcome1, p1.MatchesPlayed)
	new2 := CalculateNewRating(p2.Rating, p1.Rating, 1.0-outcome1, p2.MatchesPlayed)

	if err := m.SetRating(summary.Player1, new1, p1.MatchesPlayed+1); err != nil {
		return nil, err
	}
	if err := m.SetRating(summary.Player2, new2, p2.MatchesPlayed+1); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := []*RatingUpdate{
		{
			PlayerID:       summary.Player1,
			OldRating:      p1.Rating,
			NewRating:      new1,
			Change:         new1 - p1.Rating,
			OpponentRating: p2.Rating,
			MatchID:        summary.MatchID,
			Timestamp:      now,
		},
		{
			PlayerID:       summary.Player2,
			OldRating:      p2.Rating,
			NewRating:      new2,
			Change:         new2 - p2.Rating,
			OpponentRating: p1.Rating,
			MatchID:        summary.MatchID,
			Timestamp:      now,
		},
	}

	m.logger.Info("ratings updated",
		zap.String("matchId", summary.MatchID),
		zap.Float64("player1", new1),
		zap.Float64("player2", new2))

	for _, update := range updates {
		m.publishUpdate(update)
	}
	return updates, nil
}

func (m *Manager) publishUpdate(update *RatingUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		m.logger.Error("failed to marshal rating update", zap.Error(err))
		return
	}
	if err := m.rdb.Publish(m.ctx, ratingChannel, payload).Err(); err != nil {
		m.logger.Error("failed to publish rating update", zap.Error(err))
	}
}

// isRanked reports whether a match counts toward ratings: two distinct human
// players and a decided winner. Local and AI matches never count.
func isRanked(s models.MatchSummary) bool {
	switch s.Mode {
	case models.ModeLocal, models.ModeAI:
		return false
	}
	return s.Winner != "" && s.Player1 != s.Player2
}

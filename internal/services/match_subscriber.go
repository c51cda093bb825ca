package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pong/internal/models"
	"pong/internal/rating"
	"pong/internal/repositories"
)

// MatchSubscriber consumes finished-match events and turns each one into a
// history row plus a rating update. It runs in its own goroutine for the
// lifetime of the process.
type MatchSubscriber struct {
	rdb        *redis.Client
	repo       *repositories.HistoryRepository
	ratings    *rating.Manager
	logger     *zap.Logger
	instanceID string
}

func NewMatchSubscriber(rdb *redis.Client, repo *repositories.HistoryRepository, ratings *rating.Manager, logger *zap.Logger) *MatchSubscriber {
	return &MatchSubscriber{
		rdb:        rdb,
		repo:       repo,
		ratings:    ratings,
		logger:     logger,
		instanceID: uuid.New().String()[:8],
	}
}

// Subscribe blocks consuming match_finished events until ctx is canceled.
func (s *MatchSubscriber) Subscribe(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	subscriber := s.rdb.Subscribe(ctx, MatchFinishedChannel)
	defer subscriber.Close()
	ch := subscriber.Channel()

	s.logger.Info("subscribed to match_finished events", zap.String("instance", s.instanceID))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleEvent(msg.Payload)
		}
	}
}

func (s *MatchSubscriber) handleEvent(payload string) {
	var summary models.MatchSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		s.logger.Error("failed to unmarshal match summary", zap.Error(err))
		return
	}

	record := &models.MatchRecord{
		MatchID:      summary.MatchID,
		Mode:         summary.Mode,
		Player1:      summary.Player1,
		Player2:      summary.Player2,
		Winner:       summary.Winner,
		Score1:       summary.Score1,
		Score2:       summary.Score2,
		Reason:       summary.Reason,
		TournamentID: summary.TournamentID,
		StartedAt:    summary.StartedAt,
		EndedAt:      summary.EndedAt,
		DurationSec:  summary.DurationSec,
	}
	if err := s.repo.Create(record); err != nil {
		s.logger.Error("failed to save match record", zap.String("matchId", summary.MatchID), zap.Error(err))
		return
	}

	if s.ratings != nil {
		if _, err := s.ratings.ProcessMatch(summary); err != nil {
			s.logger.Error("failed to process ratings", zap.String("matchId", summary.MatchID), zap.Error(err))
		}
	}

	s.logger.Info("match record saved",
		zap.String("instance", s.instanceID),
		zap.String("matchId", summary.MatchID))
}

package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pong/internal/models"
)

// MatchFinishedChannel carries one MatchSummary per finished match.
const MatchFinishedChannel = "match_finished"

// MatchPublisher pushes finished-match summaries onto Redis. The engine calls
// it from the finish path; persistence happens in whichever subscriber picks
// the event up.
type MatchPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMatchPublisher(rdb *redis.Client, logger *zap.Logger) *MatchPublisher {
	return &MatchPublisher{rdb: rdb, logger: logger}
}

func (p *MatchPublisher) Publish(summary models.MatchSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		p.logger.Error("failed to marshal match summary", zap.String("matchId", summary.MatchID), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(context.Background(), MatchFinishedChannel, payload).Err(); err != nil {
		p.logger.Error("failed to publish match summary", zap.String("matchId", summary.MatchID), zap.Error(err))
		return
	}
	p.logger.Info("match summary published", zap.String("matchId", summary.MatchID))
}

package jobs

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pong/internal/repositories"
)

// LeaderboardKey is the Redis sorted set holding win counts per player.
const LeaderboardKey = "leaderboard"

// LeaderboardExporter periodically recomputes the win-count leaderboard from
// the match history table into a Redis sorted set, where other services read
// it cheaply.
type LeaderboardExporter struct {
	repo     *repositories.HistoryRepository
	rdb      *redis.Client
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewLeaderboardExporter(repo *repositories.HistoryRepository, rdb *redis.Client, schedule string, logger *zap.Logger) *LeaderboardExporter {
	return &LeaderboardExporter{
		repo:     repo,
		rdb:      rdb,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the export and runs it once immediately so a fresh process
// serves a populated leaderboard.
func (le *LeaderboardExporter) Start() error {
	_, err := le.cron.AddFunc(le.schedule, func() {
		if err := le.RunExport(); err != nil {
			le.logger.Error("leaderboard export failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule leaderboard export: %w", err)
	}

	le.cron.Start()
	le.logger.Info("leaderboard exporter started", zap.String("schedule", le.schedule))

	go func() {
		if err := le.RunExport(); err != nil {
			le.logger.Error("initial leaderboard export failed", zap.Error(err))
		}
	}()
	return nil
}

func (le *LeaderboardExporter) Stop() {
	if le.cron != nil {
		le.cron.Stop()
		le.logger.Info("leaderboard exporter stopped")
	}
}

// RunExport performs a single recompute-and-write pass.
func (le *LeaderboardExporter) RunExport() error {
	counts, err := le.repo.WinCounts()
	if err != nil {
		return fmt.Errorf("failed to compute win counts: %w", err)
	}
	if len(counts) == 0 {
		return nil
	}

	ctx := context.Background()
	members := make([]redis.Z, 0, len(counts))
	for playerID, wins := range counts {
		members = append(members, redis.Z{Score: float64(wins), Member: playerID})
	}
	if err := le.rdb.ZAdd(ctx, LeaderboardKey, members...).Err(); err != nil {
		return fmt.Errorf("failed to write leaderboard: %w", err)
	}

	le.logger.Info("leaderboard exported", zap.Int("players", len(counts)))
	return nil
}

// Top returns the highest win counts, best first.
func (le *LeaderboardExporter) Top(ctx context.Context, n int64) ([]redis.Z, error) {
	return le.rdb.ZRevRangeWithScores(ctx, LeaderboardKey, 0, n-1).Result()
}

package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pong/internal/models"
	"pong/internal/rating"
	"pong/internal/repositories"
	"pong/internal/testhelpers"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testSummary() models.MatchSummary {
	now := time.Now().Truncate(time.Second)
	return models.MatchSummary{
		MatchID:     "m1",
		Mode:        models.ModeRandom,
		Player1:     "alice",
		Player2:     "bob",
		Winner:      "alice",
		Score1:      5,
		Score2:      3,
		Reason:      models.ReasonScore,
		StartedAt:   now.Add(-90 * time.Second),
		EndedAt:     now,
		DurationSec: 90,
	}
}

func TestPublishAndConsumeRoundTrip(t *testing.T) {
	rdb := setupTestRedis(t)
	db := testhelpers.SetupTestDB(t)
	repo := repositories.NewHistoryRepository(db)
	logger := zap.NewNop()

	sub := NewMatchSubscriber(rdb, repo, rating.NewManager(rdb, logger), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Subscribe(ctx)

	// Give the subscriber a moment to register its channel.
	time.Sleep(50 * time.Millisecond)

	NewMatchPublisher(rdb, logger).Publish(testSummary())

	require.Eventually(t, func() bool {
		records, err := repo.GetByUserID("alice")
		return err == nil && len(records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	records, err := repo.GetByUserID("alice")
	require.NoError(t, err)
	assert.Equal(t, "m1", records[0].MatchID)
	assert.Equal(t, "alice", records[0].Winner)
	assert.Equal(t, 90, records[0].DurationSec)

	// The ranked result moved both ratings off the default. The subscriber
	// stores the history record before it processes ratings, so wait for the
	// rating write as well before asserting on it.
	ratings := rating.NewManager(rdb, logger)
	require.Eventually(t, func() bool {
		pr, err := ratings.GetRating("alice")
		return err == nil && pr.Rating != rating.DefaultRating
	}, 2*time.Second, 10*time.Millisecond)
	winner, err := ratings.GetRating("alice")
	require.NoError(t, err)
	loser, err := ratings.GetRating("bob")
	require.NoError(t, err)
	assert.Greater(t, winner.Rating, rating.DefaultRating)
	assert.Less(t, loser.Rating, rating.DefaultRating)
}

func TestDuplicateEventsStoredOnce(t *testing.T) {
	rdb := setupTestRedis(t)
	db := testhelpers.SetupTestDB(t)
	repo := repositories.NewHistoryRepository(db)
	logger := zap.NewNop()

	sub := NewMatchSubscriber(rdb, repo, nil, logger)
	summary := testSummary()
	payload, err := json.Marshal(summary)
	require.NoError(t, err)

	sub.handleEvent(string(payload))
	sub.handleEvent(string(payload))

	records, err := repo.GetByUserID("alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMalformedEventIgnored(t *testing.T) {
	rdb := setupTestRedis(t)
	db := testhelpers.SetupTestDB(t)
	repo := repositories.NewHistoryRepository(db)

	sub := NewMatchSubscriber(rdb, repo, nil, zap.NewNop())
	sub.handleEvent("{not json")

	records, err := repo.GetByUserID("alice")
	require.NoError(t, err)
	assert.Empty(t, records)
}

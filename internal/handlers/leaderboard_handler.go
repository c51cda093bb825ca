package handlers

import (
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pong/internal/jobs"
	"pong/internal/utils"
)

// LeaderboardHandler serves the exported win-count ranking straight from
// Redis.
type LeaderboardHandler struct {
	RDB *redis.Client
}

func NewLeaderboardHandler(rdb *redis.Client) *LeaderboardHandler {
	return &LeaderboardHandler{RDB: rdb}
}

type leaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Wins     int64  `json:"wins"`
	Rank     int    `json:"rank"`
}

func (h *LeaderboardHandler) TopHandler(w http.ResponseWriter, r *http.Request) {
	limit := int64(10)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	rows, err := h.RDB.ZRevRangeWithScores(r.Context(), jobs.LeaderboardKey, 0, limit-1).Result()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}

	entries := make([]leaderboardEntry, 0, len(rows))
	for i, row := range rows {
		playerID, _ := row.Member.(string)
		entries = append(entries, leaderboardEntry{
			PlayerID: playerID,
			Wins:     int64(row.Score),
			Rank:     i + 1,
		})
	}
	utils.JSON(w, http.StatusOK, entries)
}

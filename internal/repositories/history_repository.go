package repositories

import (
	"gorm.io/gorm"

	"pong/internal/models"
)

// HistoryRepository persists finished matches and answers per-player stat
// queries over them.
type HistoryRepository struct {
	DB *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

// Create stores one finished match. The Redis channel delivers at least once,
// so a row that already exists for the match ID is silently skipped.
func (r *HistoryRepository) Create(rec *models.MatchRecord) error {
	var count int64
	if err := r.DB.Model(&models.MatchRecord{}).
		Where("match_id = ?", rec.MatchID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.DB.Create(rec).Error
}

// GetByUserID returns a player's match history, newest first.
func (r *HistoryRepository) GetByUserID(userID string) ([]models.MatchRecord, error) {
	var records []models.MatchRecord
	err := r.DB.
		Where("player1 = ? OR player2 = ?", userID, userID).
		Order("ended_at DESC").
		Find(&records).Error
	return records, err
}

// StatsForUser aggregates a player's record across all stored matches.
func (r *HistoryRepository) StatsForUser(userID string) (models.UserStats, error) {
	records, err := r.GetByUserID(userID)
	if err != nil {
		return models.UserStats{}, err
	}

	stats := models.UserStats{UserID: userID}
	for _, rec := range records {
		stats.Played++
		if rec.Winner == userID {
			stats.Wins++
		} else if rec.Winner != "" {
			stats.Losses++
		}
		if rec.Player1 == userID {
			stats.Points += rec.Score1
			stats.Against += rec.Score2
		} else {
			stats.Points += rec.Score2
			stats.Against += rec.Score1
		}
	}
	return stats, nil
}

// WinCounts returns total wins per human player, for the leaderboard export.
func (r *HistoryRepository) WinCounts() (map[string]int64, error) {
	type row struct {
		Winner string
		Wins   int64
	}
	var rows []row
	err := r.DB.Model(&models.MatchRecord{}).
		Select("winner, COUNT(*) AS wins").
		Where("winner <> '' AND winner NOT IN ?", []string{"ai", "local"}).
		Group("winner").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Winner] = r.Wins
	}
	return counts, nil
}

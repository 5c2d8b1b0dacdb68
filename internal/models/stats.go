package models

import "time"

// Statistics is the aggregate record for one player.
type Statistics struct {
	UserID          string    `json:"user_id"`
	GamesPlayed     int       `json:"games_played"`
	GamesWon        int       `json:"games_won"`
	CurrentStreak   int       `json:"current_streak"`
	BestStreak      int       `json:"best_streak"`
	TotalScore      int       `json:"total_score"`
	AverageMistakes float64   `json:"average_mistakes"`
	AverageTime     float64   `json:"average_time"` // seconds
	LastPlayedDate  time.Time `json:"last_played_date"`
}

// WinRate is the percentage of games won, 0 when nothing was played.
func (s Statistics) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.GamesWon) / float64(s.GamesPlayed) * 100
}

// Completion describes one finished game as fed into the statistics.
type Completion struct {
	UserID           string    `json:"user_id"`
	Won              bool      `json:"won"`
	Mistakes         int       `json:"mistakes"`
	TimeTakenSeconds float64   `json:"time_taken_seconds"`
	Score            int       `json:"score"`
	PlayedAt         time.Time `json:"played_at"`
}

package stats

import (
	"github.com/vytor/cryptogram/internal/models"
)

// Apply folds one completed game into the running statistics. prev may be
// nil for a player's first game. Averages use the count before the update,
// so no per-game history is needed.
func Apply(prev *models.Statistics, c models.Completion) models.Statistics {
	var s models.Statistics
	if prev != nil {
		s = *prev
	}
	s.UserID = c.UserID

	n := float64(s.GamesPlayed)
	s.AverageMistakes = (s.AverageMistakes*n + float64(c.Mistakes)) / (n + 1)
	s.AverageTime = (s.AverageTime*n + c.TimeTakenSeconds) / (n + 1)

	s.GamesPlayed++
	if c.Won {
		s.GamesWon++
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 0
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.TotalScore += c.Score
	s.LastPlayedDate = c.PlayedAt
	return s
}

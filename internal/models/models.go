package models

import (
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty accepts any casing; ok is false for unknown values.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Rank orders difficulties easy < medium < hard.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return 3
}

// DefaultMaxMistakes is the mistake budget for a difficulty.
func (d Difficulty) DefaultMaxMistakes() int {
	switch d {
	case DifficultyEasy:
		return 5
	case DifficultyHard:
		return 3
	default:
		return 4
	}
}

type Quote struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Author      string     `json:"author"`
	Attribution string     `json:"attribution,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	IsDaily     bool       `json:"is_daily"`
	DailyDate   string     `json:"daily_date,omitempty"` // YYYY-MM-DD
	IsActive    bool       `json:"is_active"`
	TimesUsed   int        `json:"times_used"`
	CreatedAt   time.Time  `json:"created_at"`
}

type NewQuote struct {
	Text        string     `json:"text" yaml:"text"`
	Author      string     `json:"author" yaml:"author"`
	Attribution string     `json:"attribution,omitempty" yaml:"attribution"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
}

// QuoteFilter narrows QuoteRepository.List. Zero values match everything
// active.
type QuoteFilter struct {
	Difficulty      Difficulty
	Author          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

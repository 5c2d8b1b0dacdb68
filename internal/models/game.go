package models

import "time"

// BlockGlyph hides an unrevealed letter in GameSession.Display.
const BlockGlyph = '█'

// NoLetter is the zero value of GameSession.SelectedLetter.
const NoLetter rune = 0

// Puzzle is an encrypted quote. Letter maps are keyed by upper-case ASCII
// letters and cover the whole alphabet.
type Puzzle struct {
	Plaintext  string        `json:"plaintext"`
	Ciphertext string        `json:"ciphertext"`
	LetterMap  map[rune]rune `json:"-"` // plain -> cipher
	ReverseMap map[rune]rune `json:"-"` // cipher -> plain
}

// GameSession is an immutable snapshot of one game. Transitions live in the
// cipher package and always return a fresh value.
type GameSession struct {
	SessionID       string        `json:"session_id"`
	QuoteID         int64         `json:"quote_id"`
	Difficulty      Difficulty    `json:"difficulty"`
	Puzzle          Puzzle        `json:"puzzle"`
	Display         string        `json:"display"`
	GuessedMappings map[rune]rune `json:"-"` // cipher -> plain
	SelectedLetter  rune          `json:"-"`
	Mistakes        int           `json:"mistakes"`
	MaxMistakes     int           `json:"max_mistakes"`
	HintsUsed       int           `json:"hints_used"`
	HasWon          bool          `json:"has_won"`
	HasLost         bool          `json:"has_lost"`
	StartedAt       time.Time     `json:"started_at"`
	LastUpdatedAt   time.Time     `json:"last_updated_at"`
}

// IsTerminal reports whether the game has been won or lost.
func (s GameSession) IsTerminal() bool {
	return s.HasWon || s.HasLost
}

func (s GameSession) HasSelection() bool {
	return s.SelectedLetter != NoLetter
}

// Elapsed is the play time between start and the last transition.
func (s GameSession) Elapsed() time.Duration {
	d := s.LastUpdatedAt.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// GameRecord is the persisted summary of a session, used for history.
type GameRecord struct {
	SessionID        string     `json:"session_id"`
	QuoteID          int64      `json:"quote_id"`
	Difficulty       Difficulty `json:"difficulty"`
	Plaintext        string     `json:"plaintext"`
	Mistakes         int        `json:"mistakes"`
	MaxMistakes      int        `json:"max_mistakes"`
	HasWon           bool       `json:"has_won"`
	HasLost          bool       `json:"has_lost"`
	IsComplete       bool       `json:"is_complete"`
	Score            int        `json:"score"`
	TimeTakenSeconds float64    `json:"time_taken_seconds"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUpdated      time.Time  `json:"last_updated"`
}

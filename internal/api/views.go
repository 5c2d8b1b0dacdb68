package api

import (
	"time"

	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/services"
)

// sessionView is what a player may see of a session. The plaintext only
// appears once the game is over.
type sessionView struct {
	SessionID      string            `json:"session_id"`
	QuoteID        int64             `json:"quote_id"`
	Difficulty     models.Difficulty `json:"difficulty"`
	Ciphertext     string            `json:"ciphertext"`
	Display        string            `json:"display"`
	CipherLetters  []string          `json:"cipher_letters"`
	Revealed       map[string]string `json:"revealed"`
	SelectedLetter string            `json:"selected_letter,omitempty"`
	Mistakes       int               `json:"mistakes"`
	MaxMistakes    int               `json:"max_mistakes"`
	MistakesLeft   int               `json:"mistakes_left"`
	HintsUsed      int               `json:"hints_used"`
	HasWon         bool              `json:"has_won"`
	HasLost        bool              `json:"has_lost"`
	Plaintext      string            `json:"plaintext,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	LastUpdatedAt  time.Time         `json:"last_updated_at"`
}

func newSessionView(s models.GameSession) sessionView {
	v := sessionView{
		SessionID:     s.SessionID,
		QuoteID:       s.QuoteID,
		Difficulty:    s.Difficulty,
		Ciphertext:    s.Puzzle.Ciphertext,
		Display:       s.Display,
		Revealed:      make(map[string]string, len(s.GuessedMappings)),
		Mistakes:      s.Mistakes,
		MaxMistakes:   s.MaxMistakes,
		MistakesLeft:  max(s.MaxMistakes-s.Mistakes, 0),
		HintsUsed:     s.HintsUsed,
		HasWon:        s.HasWon,
		HasLost:       s.HasLost,
		StartedAt:     s.StartedAt,
		LastUpdatedAt: s.LastUpdatedAt,
	}
	for _, c := range cipher.UniqueCipherLetters(s) {
		v.CipherLetters = append(v.CipherLetters, string(c))
	}
	for _, c := range cipher.GuessedLetters(s) {
		v.Revealed[string(c)] = string(s.GuessedMappings[c])
	}
	if s.HasSelection() {
		v.SelectedLetter = string(s.SelectedLetter)
	}
	if s.IsTerminal() {
		v.Plaintext = s.Puzzle.Plaintext
	}
	return v
}

type revealView struct {
	Cipher string `json:"cipher"`
	Plain  string `json:"plain"`
}

type outcomeView struct {
	Session    sessionView     `json:"session"`
	Correct    bool            `json:"correct"`
	Reveal     *revealView     `json:"reveal,omitempty"`
	Finished   bool            `json:"finished"`
	Score      int             `json:"score"`
	Statistics *statisticsView `json:"statistics,omitempty"`
}

func newOutcomeView(o *services.Outcome) outcomeView {
	v := outcomeView{
		Session:  newSessionView(o.Session),
		Correct:  o.Correct,
		Finished: o.Finished,
		Score:    o.Score,
	}
	if o.Reveal != nil {
		v.Reveal = &revealView{Cipher: string(o.Reveal.Cipher), Plain: string(o.Reveal.Plain)}
	}
	if o.Statistics != nil {
		st := newStatisticsView(*o.Statistics)
		v.Statistics = &st
	}
	return v
}

type statisticsView struct {
	models.Statistics
	WinRate float64 `json:"win_rate"`
}

func newStatisticsView(st models.Statistics) statisticsView {
	return statisticsView{Statistics: st, WinRate: st.WinRate()}
}

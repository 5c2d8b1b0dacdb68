package scoring

import (
	"time"
	"unicode/utf8"

	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/models"
)

const (
	// PointsPerLetter is awarded for every letter position of the quote.
	PointsPerLetter = 10
	// SecondsPerPoint is how much play time costs one point.
	SecondsPerPoint = 5
)

// Inputs are everything a score depends on.
type Inputs struct {
	Letters     int
	Mistakes    int
	MaxMistakes int
	Elapsed     time.Duration
	Won         bool
}

// FromSession extracts score inputs from a session snapshot.
func FromSession(s models.GameSession) Inputs {
	return Inputs{
		Letters:     countLetters(s.Puzzle.Plaintext),
		Mistakes:    s.Mistakes,
		MaxMistakes: s.MaxMistakes,
		Elapsed:     s.Elapsed(),
		Won:         s.HasWon,
	}
}

// ComputeScore scores a session. Anything but a won game scores zero.
func ComputeScore(s models.GameSession) int {
	return Compute(FromSession(s))
}

// Compute scales the letter points by the unused share of the mistake
// budget and subtracts one point per SecondsPerPoint of play. The result is
// never negative and never grows with more mistakes or more time.
func Compute(in Inputs) int {
	if !in.Won || in.Letters <= 0 {
		return 0
	}
	maxMistakes := in.MaxMistakes
	if maxMistakes < 1 {
		maxMistakes = 1
	}
	remaining := maxMistakes - in.Mistakes
	if remaining < 0 {
		remaining = 0
	}

	base := in.Letters * PointsPerLetter
	score := base * (remaining + 1) / (maxMistakes + 1)

	seconds := int(in.Elapsed / time.Second)
	if seconds > 0 {
		score -= seconds / SecondsPerPoint
	}
	if score < 0 {
		return 0
	}
	return score
}

func countLetters(text string) int {
	n := 0
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		if cipher.IsLetter(r) {
			n++
		}
		text = text[size:]
	}
	return n
}

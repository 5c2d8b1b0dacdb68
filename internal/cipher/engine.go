// Package cipher implements the cryptogram rules: building a puzzle from a
// quote and moving a game session through selections, guesses and hints.
//
// Every transition takes a models.GameSession by value and returns a new
// snapshot; the input is never modified and no I/O happens here. An Engine
// only carries the injected randomness, clock and id source. It is not safe
// for concurrent use because *rand.Rand is not.
package cipher

import (
	"maps"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/models"
)

type Engine struct {
	rng   *rand.Rand
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed makes key generation and hint choice reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand injects a random source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithClock injects the time source used for StartedAt and LastUpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator injects the session id source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an Engine. Without options it seeds from the wall clock and
// issues UUID session ids.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Reveal is a letter pair uncovered by a hint.
type Reveal struct {
	Cipher rune `json:"cipher"`
	Plain  rune `json:"plain"`
}

// StartSession encrypts quote under a fresh random key. maxMistakes <= 0
// selects the quote difficulty's default budget.
func (e *Engine) StartSession(quote models.Quote, maxMistakes int) (models.GameSession, error) {
	if err := checkQuote(quote); err != nil {
		return models.GameSession{}, err
	}
	return e.start(quote, RandomKey(e.rng), maxMistakes), nil
}

// StartSessionWithKey encrypts quote under a caller-supplied key. A partial
// key is completed with Complete; a key that is not injective is rejected.
func (e *Engine) StartSessionWithKey(quote models.Quote, key Key, maxMistakes int) (models.GameSession, error) {
	if err := checkQuote(quote); err != nil {
		return models.GameSession{}, err
	}
	full, err := Complete(key)
	if err != nil {
		return models.GameSession{}, errors.NewInvalidQuoteError(err.Error())
	}
	return e.start(quote, full, maxMistakes), nil
}

func checkQuote(quote models.Quote) error {
	if !utf8.ValidString(quote.Text) {
		return errors.NewInvalidQuoteError("text is not valid UTF-8")
	}
	if strings.IndexFunc(quote.Text, IsLetter) < 0 {
		return errors.NewInvalidQuoteError("text has no letters to encrypt")
	}
	return nil
}

func (e *Engine) start(quote models.Quote, key Key, maxMistakes int) models.GameSession {
	if maxMistakes <= 0 {
		maxMistakes = quote.Difficulty.DefaultMaxMistakes()
	}
	puzzle := models.Puzzle{
		Plaintext:  quote.Text,
		Ciphertext: Encrypt(quote.Text, key),
		LetterMap:  map[rune]rune(key),
		ReverseMap: key.Inverse(),
	}
	now := e.now()
	s := models.GameSession{
		SessionID:       e.newID(),
		QuoteID:         quote.ID,
		Difficulty:      quote.Difficulty,
		Puzzle:          puzzle,
		GuessedMappings: map[rune]rune{},
		MaxMistakes:     maxMistakes,
		StartedAt:       now,
		LastUpdatedAt:   now,
	}
	s.Display = RenderDisplay(puzzle, s.GuessedMappings)
	return s
}

// SelectLetter marks a cipher letter as the target of the next guess.
// Letters that are already solved, absent from the puzzle, or not letters
// at all clear the selection instead. Terminal sessions are returned as is.
func (e *Engine) SelectLetter(s models.GameSession, cipherLetter rune) models.GameSession {
	if s.IsTerminal() {
		return s
	}
	next := e.clone(s)
	c := Upper(cipherLetter)
	_, solved := s.GuessedMappings[c]
	if !isUpper(c) || solved || !containsCipherLetter(s.Puzzle, c) {
		next.SelectedLetter = models.NoLetter
		return next
	}
	next.SelectedLetter = c
	return next
}

// Guess proposes plainLetter for the selected cipher letter. Without a
// selection or on a terminal session it returns s unchanged and false.
// Otherwise the selection is always cleared; a non-letter is then neither
// correct nor a mistake.
func (e *Engine) Guess(s models.GameSession, plainLetter rune) (models.GameSession, bool) {
	if s.IsTerminal() || !s.HasSelection() {
		return s, false
	}

	next := e.clone(s)
	selected := s.SelectedLetter
	next.SelectedLetter = models.NoLetter

	p := Upper(plainLetter)
	if !isUpper(p) {
		return next, false
	}

	if s.Puzzle.ReverseMap[selected] == p {
		reveal(&next, selected, p)
		settle(&next)
		return next, true
	}

	next.Mistakes++
	settle(&next)
	return next, false
}

// Hint reveals one unsolved cipher letter chosen uniformly at random. It
// costs a mistake, so a hint can end the game either way; completing the
// puzzle takes precedence over exhausting the budget. Returns nil when
// nothing is left to reveal or the session is terminal.
func (e *Engine) Hint(s models.GameSession) (models.GameSession, *Reveal) {
	if s.IsTerminal() {
		return s, nil
	}
	var open []rune
	for _, c := range UniqueCipherLetters(s) {
		if _, ok := s.GuessedMappings[c]; !ok {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return s, nil
	}

	c := open[e.rng.Intn(len(open))]
	p := s.Puzzle.ReverseMap[c]

	next := e.clone(s)
	next.SelectedLetter = models.NoLetter
	reveal(&next, c, p)
	next.Mistakes++
	next.HintsUsed++
	settle(&next)
	return next, &Reveal{Cipher: c, Plain: p}
}

func (e *Engine) clone(s models.GameSession) models.GameSession {
	next := s
	next.GuessedMappings = maps.Clone(s.GuessedMappings)
	if next.GuessedMappings == nil {
		next.GuessedMappings = map[rune]rune{}
	}
	next.LastUpdatedAt = e.now()
	return next
}

func reveal(s *models.GameSession, cipherLetter, plainLetter rune) {
	s.GuessedMappings[cipherLetter] = plainLetter
	s.Display = RenderDisplay(s.Puzzle, s.GuessedMappings)
}

// settle derives the terminal flags. A win is checked first so the two
// flags can never both be set.
func settle(s *models.GameSession) {
	if IsSolved(*s) {
		s.HasWon = true
		return
	}
	if s.Mistakes >= s.MaxMistakes {
		s.HasLost = true
	}
}

// IsSolved reports whether every cipher letter of the puzzle has been mapped.
func IsSolved(s models.GameSession) bool {
	for _, c := range UniqueCipherLetters(s) {
		if _, ok := s.GuessedMappings[c]; !ok {
			return false
		}
	}
	return true
}

// RenderDisplay shows the plaintext character wherever its cipher letter has
// been guessed, BlockGlyph for the remaining letters, and every other
// character literally. The result has as many runes as the ciphertext.
func RenderDisplay(p models.Puzzle, guessed map[rune]rune) string {
	plain := []rune(p.Plaintext)
	out := []rune(p.Ciphertext)
	for i, r := range out {
		if !IsLetter(r) {
			continue
		}
		if _, ok := guessed[Upper(r)]; ok {
			out[i] = plain[i]
		} else {
			out[i] = models.BlockGlyph
		}
	}
	return string(out)
}

// UniqueCipherLetters returns the distinct upper-case cipher letters in the
// ciphertext, sorted.
func UniqueCipherLetters(s models.GameSession) []rune {
	set := map[rune]bool{}
	for _, r := range s.Puzzle.Ciphertext {
		if IsLetter(r) {
			set[Upper(r)] = true
		}
	}
	return sortedRunes(set)
}

// GuessedLetters returns the cipher letters already solved, sorted.
func GuessedLetters(s models.GameSession) []rune {
	set := make(map[rune]bool, len(s.GuessedMappings))
	for c := range s.GuessedMappings {
		set[c] = true
	}
	return sortedRunes(set)
}

func containsCipherLetter(p models.Puzzle, c rune) bool {
	return strings.ContainsRune(p.Ciphertext, c) || strings.ContainsRune(p.Ciphertext, lower(c))
}

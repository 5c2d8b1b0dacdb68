package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/cryptogram/internal/cipher"
	"github.com/vytor/cryptogram/internal/codec"
	"github.com/vytor/cryptogram/internal/errors"
	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
)

var sessionColumns = []string{
	"session_id", "quote_id", "original_text", "encrypted_text", "current_display",
	"mapping", "reverse_mapping", "correctly_guessed", "selected_letter",
	"mistakes", "max_mistakes", "hints_used", "difficulty", "has_won", "has_lost",
	"created_at", "last_updated",
}

var recordColumns = []string{
	"session_id", "quote_id", "difficulty", "original_text", "mistakes", "max_mistakes",
	"has_won", "has_lost", "is_complete", "score", "time_taken", "created_at", "last_updated",
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

type sessionBlobs struct {
	mapping, reverse, guessed []byte
}

func encodeSession(s models.GameSession) (sessionBlobs, error) {
	var b sessionBlobs
	var err error
	if b.mapping, err = codec.EncodeMapping(s.Puzzle.LetterMap); err != nil {
		return b, errors.NewSerializationError("mapping", err)
	}
	if b.reverse, err = codec.EncodeMapping(s.Puzzle.ReverseMap); err != nil {
		return b, errors.NewSerializationError("reverse_mapping", err)
	}
	guessed := make([]rune, 0, len(s.GuessedMappings))
	for c := range s.GuessedMappings {
		guessed = append(guessed, c)
	}
	if b.guessed, err = codec.EncodeLetters(guessed); err != nil {
		return b, errors.NewSerializationError("correctly_guessed", err)
	}
	return b, nil
}

func scanSession(row rowScanner) (*models.GameSession, error) {
	var (
		s        models.GameSession
		b        sessionBlobs
		selected sql.NullString
	)
	err := row.Scan(&s.SessionID, &s.QuoteID, &s.Puzzle.Plaintext, &s.Puzzle.Ciphertext, &s.Display,
		&b.mapping, &b.reverse, &b.guessed, &selected,
		&s.Mistakes, &s.MaxMistakes, &s.HintsUsed, &s.Difficulty, &s.HasWon, &s.HasLost,
		&s.StartedAt, &s.LastUpdatedAt)
	if err != nil {
		return nil, err
	}

	if s.Puzzle.LetterMap, err = codec.DecodeMapping("mapping", b.mapping); err != nil {
		return nil, err
	}
	if s.Puzzle.ReverseMap, err = codec.DecodeMapping("reverse_mapping", b.reverse); err != nil {
		return nil, err
	}
	for p, c := range s.Puzzle.LetterMap {
		if s.Puzzle.ReverseMap[c] != p {
			return nil, errors.NewSerializationError("reverse_mapping", fmt.Errorf("not the inverse of mapping at %q", p))
		}
	}
	if err := checkTexts(s.Puzzle); err != nil {
		return nil, err
	}
	letters, err := codec.DecodeLetters("correctly_guessed", b.guessed)
	if err != nil {
		return nil, err
	}
	s.GuessedMappings = make(map[rune]rune, len(letters))
	for _, c := range letters {
		p, ok := s.Puzzle.ReverseMap[c]
		if !ok {
			return nil, errors.NewSerializationError("correctly_guessed", fmt.Errorf("letter %q is not in the key", c))
		}
		s.GuessedMappings[c] = p
	}
	if len([]rune(s.Display)) != len([]rune(s.Puzzle.Ciphertext)) {
		return nil, errors.NewSerializationError("current_display", fmt.Errorf("length differs from encrypted_text"))
	}
	if selected.Valid && selected.String != "" {
		rs := []rune(selected.String)
		s.SelectedLetter = rs[0]
	}
	return &s, nil
}

// checkTexts requires encrypted_text to be original_text under the stored key.
func checkTexts(p models.Puzzle) error {
	if len([]rune(p.Plaintext)) != len([]rune(p.Ciphertext)) {
		return errors.NewSerializationError("encrypted_text", fmt.Errorf("length differs from original_text"))
	}
	if cipher.Encrypt(p.Plaintext, p.LetterMap) != p.Ciphertext {
		return errors.NewSerializationError("encrypted_text", fmt.Errorf("does not match original_text under mapping"))
	}
	return nil
}

func (r *sessionRepository) Save(ctx context.Context, s models.GameSession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("saving session: id=%s, mistakes=%d/%d, won=%t, lost=%t",
		s.SessionID, s.Mistakes, s.MaxMistakes, s.HasWon, s.HasLost)

	blobs, err := encodeSession(s)
	if err != nil {
		log.Error("failed to encode session: %v", err)
		return err
	}
	var selected sql.NullString
	if s.HasSelection() {
		selected = nullString(string(s.SelectedLetter))
	}

	err = tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE session_id != ? AND has_won = 0 AND has_lost = 0`, s.SessionID)
		if err != nil {
			return storageErr("supersede sessions", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Debug("superseded %d unfinished session(s)", n)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO games (session_id, quote_id, original_text, encrypted_text, current_display,
                   mapping, reverse_mapping, correctly_guessed, selected_letter,
                   mistakes, max_mistakes, hints_used, difficulty, has_won, has_lost,
                   created_at, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    current_display = excluded.current_display,
    correctly_guessed = excluded.correctly_guessed,
    selected_letter = excluded.selected_letter,
    mistakes = excluded.mistakes,
    hints_used = excluded.hints_used,
    has_won = excluded.has_won,
    has_lost = excluded.has_lost,
    last_updated = excluded.last_updated
`, s.SessionID, s.QuoteID, s.Puzzle.Plaintext, s.Puzzle.Ciphertext, s.Display,
			blobs.mapping, blobs.reverse, blobs.guessed, selected,
			s.Mistakes, s.MaxMistakes, s.HintsUsed, string(s.Difficulty), boolInt(s.HasWon), boolInt(s.HasLost),
			s.StartedAt.UTC(), s.LastUpdatedAt.UTC())
		if err != nil {
			return storageErr("save session", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save session: %v", err)
		return err
	}
	return nil
}

func (r *sessionRepository) LoadLatestUnfinished(ctx context.Context) (*models.GameSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("loading latest unfinished session")

	query, args, err := sqlBuilder.Select(sessionColumns...).From("games").
		Where(squirrel.Eq{"has_won": 0, "has_lost": 0}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			log.Debug("no unfinished session")
			return nil, nil
		}
		log.Error("failed to load unfinished session: %v", err)
		return nil, storageErr("load session", err)
	}
	log.Debug("loaded session: id=%s", s.SessionID)
	return s, nil
}

func (r *sessionRepository) Get(ctx context.Context, sessionID string) (*models.GameSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: id=%s", sessionID)

	query, args, err := sqlBuilder.Select(sessionColumns...).From("games").
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found: id=%s", sessionID)
			return nil, errors.NewNotFoundError("session", sessionID)
		}
		log.Error("failed to get session: %v", err)
		return nil, storageErr("get session", err)
	}
	return s, nil
}

func (r *sessionRepository) Clear(ctx context.Context, sessionID string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("clearing session: id=%s", sessionID)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE session_id = ? AND is_complete = 0`, sessionID)
		if err != nil {
			log.Error("failed to clear session: %v", err)
			return storageErr("clear session", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Info("session cleared: id=%s", sessionID)
			return nil
		}
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE session_id = ?`, sessionID).Scan(&exists)
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("session", sessionID)
		}
		if err != nil {
			return storageErr("clear session", err)
		}
		log.Debug("session %s is complete, kept as history", sessionID)
		return nil
	})
}

func (r *sessionRepository) Finish(ctx context.Context, sessionID string, score int, timeTakenSeconds float64) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("finishing session: id=%s, score=%d, time=%.1fs", sessionID, score, timeTakenSeconds)

	res, err := r.db.ExecContext(ctx, `
UPDATE games SET is_complete = 1, score = ?, time_taken = ?
WHERE session_id = ? AND (has_won = 1 OR has_lost = 1)
`, score, timeTakenSeconds, sessionID)
	if err != nil {
		log.Error("failed to finish session: %v", err)
		return storageErr("finish session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("finish session", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("finished session", sessionID)
	}
	log.Info("session finished: id=%s, score=%d", sessionID, score)
	return nil
}

func scanRecord(row rowScanner) (*models.GameRecord, error) {
	var g models.GameRecord
	err := row.Scan(&g.SessionID, &g.QuoteID, &g.Difficulty, &g.Plaintext, &g.Mistakes, &g.MaxMistakes,
		&g.HasWon, &g.HasLost, &g.IsComplete, &g.Score, &g.TimeTakenSeconds, &g.CreatedAt, &g.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *sessionRepository) Record(ctx context.Context, sessionID string) (*models.GameRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting game record: id=%s", sessionID)

	query, args, err := sqlBuilder.Select(recordColumns...).From("games").
		Where(squirrel.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	g, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("session", sessionID)
		}
		log.Error("failed to get game record: %v", err)
		return nil, storageErr("get game record", err)
	}
	return g, nil
}

func (r *sessionRepository) ListCompleted(ctx context.Context, limit int) ([]models.GameRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing completed games: limit=%d", limit)

	builder := sqlBuilder.Select(recordColumns...).From("games").
		Where(squirrel.Eq{"is_complete": 1}).
		OrderBy("last_updated DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list completed games: %v", err)
		return nil, storageErr("list games", err)
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		g, err := scanRecord(rows)
		if err != nil {
			log.Error("failed to scan game row: %v", err)
			return nil, storageErr("list games", err)
		}
		records = append(records, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list games", err)
	}
	log.Debug("found %d completed games", len(records))
	return records, nil
}

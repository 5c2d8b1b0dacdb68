package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/cryptogram/internal/db"
	"github.com/vytor/cryptogram/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
func NewTestDB(t *testing.T) *sql.DB {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	return database.DB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Clock is a manual time source. Each call to Now advances it by Step.
type Clock struct {
	T    time.Time
	Step time.Duration
}

// NewClock starts a clock at a fixed instant that ticks one second per read.
func NewClock() *Clock {
	return &Clock{T: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Step: time.Second}
}

func (c *Clock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}

// Quote builds an active medium quote with the given text.
func Quote(id int64, text string) models.Quote {
	return models.Quote{
		ID:         id,
		Text:       text,
		Author:     "Anonymous",
		Difficulty: models.DifficultyMedium,
		IsActive:   true,
	}
}

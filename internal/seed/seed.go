// Package seed holds the starter quote catalogue.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vytor/cryptogram/internal/logger"
	"github.com/vytor/cryptogram/internal/models"
	"github.com/vytor/cryptogram/internal/repository"
)

//go:embed quotes.yaml
var catalogue []byte

type file struct {
	Quotes []models.NewQuote `yaml:"quotes"`
}

// Parse decodes a YAML catalogue and checks every entry.
func Parse(data []byte) ([]models.NewQuote, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quote catalogue: %w", err)
	}
	for i, q := range f.Quotes {
		if q.Text == "" || q.Author == "" {
			return nil, fmt.Errorf("quote %d: text and author are required", i+1)
		}
		if !q.Difficulty.Valid() {
			return nil, fmt.Errorf("quote %d: unknown difficulty %q", i+1, q.Difficulty)
		}
	}
	return f.Quotes, nil
}

// Catalogue returns the embedded starter quotes.
func Catalogue() ([]models.NewQuote, error) {
	return Parse(catalogue)
}

// IfEmpty loads the embedded catalogue when the quotes table has no rows,
// retired ones included. It returns how many quotes were added.
func IfEmpty(ctx context.Context, repo repository.QuoteRepository) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("seed")

	count, err := repo.Count(ctx, models.QuoteFilter{IncludeInactive: true})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Debug("quotes table has %d rows, skipping seed", count)
		return 0, nil
	}

	quotes, err := Catalogue()
	if err != nil {
		return 0, err
	}
	for _, q := range quotes {
		if _, err := repo.Add(ctx, q); err != nil {
			return 0, fmt.Errorf("seed quote %q: %w", q.Text, err)
		}
	}
	log.Info("seeded %d quotes", len(quotes))
	return len(quotes), nil
}

package providers

import (
	"context"

	"lattice-site/models"
)

// Provider is implemented by every bibliographic search backend.
type Provider interface {
	// SearchAuthor returns the records found for one author name, newest
	// first, capped at max.
	SearchAuthor(ctx context.Context, name string, max int) ([]models.Publication, error)

	// Name returns the provider's unique name (e.g. "arxiv").
	Name() string
}

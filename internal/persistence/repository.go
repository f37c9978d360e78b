package persistence

import "rl-rebalancer-go/internal/models"

// ResultRepository defines the interface for sweep result persistence.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application.
type ResultRepository interface {
	// SaveResult atomically saves one run result, replacing any result with the same RunID.
	SaveResult(result *models.RunResult) error

	// LoadResult loads a run result by ID.
	// If no result is found, it should return (nil, nil).
	LoadResult(runID string) (*models.RunResult, error)

	// ListResults returns every stored result ordered by RunID.
	ListResults() ([]models.RunResult, error)

	// Close gracefully closes the connection to the database.
	Close() error
}

package store

import (
	"github.com/celer-network/eth-batch-sender/store/models"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

var (
	// ErrNotFound is returned when no entity exists under the requested key
	ErrNotFound = errors.New("not found")
)

// Store keeps the outcome of every work item for the lifetime of the process.
type Store interface {
	// PutOutcome inserts or replaces the outcome with the same ID.
	PutOutcome(outcome *models.Outcome) error

	GetOutcome(id uuid.UUID) (*models.Outcome, error)

	// GetOutcomes returns all outcomes ordered by ID bytes.
	GetOutcomes() ([]*models.Outcome, error)

	Close() error
}

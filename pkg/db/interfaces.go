package db

import (
	"context"
	"errors"

	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// ErrRosterNotFound is returned when a roster id does not exist
var ErrRosterNotFound = errors.New("roster not found")

// RosterStore defines the interface for roster database operations
type RosterStore interface {
	GetRoster(ctx context.Context, rosterID string) (*Roster, error)
	LoadRosterInput(ctx context.Context, rosterID string) (solver.Input, error)
}

// SolveRunStore defines the interface for solve result database operations
type SolveRunStore interface {
	SaveSolveResult(ctx context.Context, result SolveResult) error
	GetSolveRuns(ctx context.Context, rosterID string) ([]SolveRun, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	RosterStore
	SolveRunStore
	Close()
}

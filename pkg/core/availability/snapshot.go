package availability

import "github.com/jakechorley/duty-roster/pkg/core/model"

// Snapshot is a read-only copy of a tracker's final state
type Snapshot struct {
	// Workers ordered by id
	Workers []model.Worker

	// Assignments holds every active assignment (pre-planned and greedy)
	Assignments []model.Assignment

	// BlockedSlots holds the pairing blocks materialized during the run
	BlockedSlots []model.BlockedSlot

	// Blackouts holds externally forced unavailable slots
	Blackouts map[model.WorkerSlotKey]bool
}

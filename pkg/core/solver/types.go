// Package solver implements the single-pass greedy roster engine.
package solver

import (
	"context"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/pairing"
)

// Solver is any backend satisfying the solve contract. The greedy Engine is the canonical one;
// solutions from other backends are accepted through the validation package.
type Solver interface {
	Solve(ctx context.Context, input Input) (*Output, error)
	Name() string
}

// Input is everything a single solve reads. It is never mutated.
type Input struct {
	RosterID    string `json:"rosterId"`
	PeriodStart string `json:"periodStart,omitempty"`
	PeriodEnd   string `json:"periodEnd,omitempty"`

	Workers      []model.Worker      `json:"workers"`
	Services     []model.ServiceType `json:"services"`
	Requirements []model.Requirement `json:"requirements"`
	PairingRules []pairing.Rule      `json:"pairingRules,omitempty"`

	// Preplanned assignments are treated as already committed
	Preplanned []model.Assignment   `json:"preplannedAssignments,omitempty"`
	Blackouts  []model.BlackoutSlot `json:"blackoutSlots,omitempty"`
}

// Status summarizes how well a run covered its requirements
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Output is the result of a completed solve
type Output struct {
	RunID    string `json:"runId"`
	RosterID string `json:"rosterId"`
	Status   Status `json:"status"`

	// Assignments holds pre-planned and greedy assignments in slot order
	Assignments  []model.Assignment  `json:"assignments"`
	Bottlenecks  []model.Bottleneck  `json:"bottlenecks"`
	BlockedSlots []model.BlockedSlot `json:"blockedSlots"`

	CoveragePercent float64    `json:"coveragePercent"`
	SolveTimeMs     int64      `json:"solveTimeMs"`
	Statistics      Statistics `json:"statistics"`

	// Cached is set by callers that served the output from a result cache
	Cached bool `json:"cached,omitempty"`
}

// GreedyAssignments returns only the assignments created by the engine
func (o *Output) GreedyAssignments() []model.Assignment {
	var result []model.Assignment
	for _, a := range o.Assignments {
		if a.Source == model.SourceGreedy {
			result = append(result, a)
		}
	}
	return result
}

// Statistics holds run counters
type Statistics struct {
	TotalRequirements int `json:"totalRequirements"`
	TotalPositions    int `json:"totalPositions"`
	FilledPositions   int `json:"filledPositions"`

	// PrePlannedCredited positions were filled by pre-planned assignments
	PrePlannedCredited    int `json:"prePlannedCredited"`
	PrePlannedAssignments int `json:"prePlannedAssignments"`
	GreedyAssignments     int `json:"greedyAssignments"`
	WorkersUsed           int `json:"workersUsed"`

	RequirementsByTier  map[string]int                 `json:"requirementsByTier"`
	PositionsByTier     map[string]int                 `json:"positionsByTier"`
	BottlenecksByReason map[model.BottleneckReason]int `json:"bottlenecksByReason"`
}

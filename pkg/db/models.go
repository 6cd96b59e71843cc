package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// Roster represents a database roster record
type Roster struct {
	ID          string
	Name        string
	PeriodStart string // Date format, empty when open
	PeriodEnd   string
}

// SolveRun represents one persisted solve of a roster
type SolveRun struct {
	ID              string
	RosterID        string
	Solver          string
	Status          string
	Accepted        bool
	CoveragePercent float64
	TotalPositions  int
	FilledPositions int
	SolveTimeMs     int64
	CreatedAt       time.Time
}

// AssignmentRecord represents an assignment produced by a solve run
type AssignmentRecord struct {
	ID          string
	RunID       string
	RosterID    string
	WorkerID    string
	Date        string
	Timeblock   string
	ServiceCode string
	Status      string
	Source      string
}

// BottleneckRecord represents an unfilled requirement diagnosed by a solve run
type BottleneckRecord struct {
	ID          string
	RunID       string
	RosterID    string
	Date        string
	Timeblock   string
	ServiceCode string
	Team        string
	Needed      int
	Assigned    int
	Shortage    int
	Reason      string
	Suggestion  string
}

// SolveResult is everything SaveSolveResult writes for one run
type SolveResult struct {
	Run         SolveRun
	Assignments []AssignmentRecord
	Bottlenecks []BottleneckRecord
}

// NewSolveResult converts solver output into records. Only greedy assignments are kept,
// pre-planned ones already live in the roster definition.
func NewSolveResult(out *solver.Output, solverName string, accepted bool) SolveResult {
	result := SolveResult{
		Run: SolveRun{
			ID:              out.RunID,
			RosterID:        out.RosterID,
			Solver:          solverName,
			Status:          string(out.Status),
			Accepted:        accepted,
			CoveragePercent: out.CoveragePercent,
			TotalPositions:  out.Statistics.TotalPositions,
			FilledPositions: out.Statistics.FilledPositions,
			SolveTimeMs:     out.SolveTimeMs,
			CreatedAt:       time.Now().UTC(),
		},
		Assignments: []AssignmentRecord{},
		Bottlenecks: make([]BottleneckRecord, 0, len(out.Bottlenecks)),
	}

	for _, a := range out.Assignments {
		if a.Source != model.SourceGreedy {
			continue
		}
		result.Assignments = append(result.Assignments, AssignmentRecord{
			ID:          uuid.NewString(),
			RunID:       out.RunID,
			RosterID:    out.RosterID,
			WorkerID:    a.WorkerID,
			Date:        a.Date,
			Timeblock:   string(a.Timeblock),
			ServiceCode: a.ServiceCode,
			Status:      string(a.Status),
			Source:      string(a.Source),
		})
	}

	for _, b := range out.Bottlenecks {
		result.Bottlenecks = append(result.Bottlenecks, BottleneckRecord{
			ID:          uuid.NewString(),
			RunID:       out.RunID,
			RosterID:    out.RosterID,
			Date:        b.Date,
			Timeblock:   string(b.Timeblock),
			ServiceCode: b.ServiceCode,
			Team:        b.Team,
			Needed:      b.Needed,
			Assigned:    b.Assigned,
			Shortage:    b.Shortage,
			Reason:      string(b.Reason),
			Suggestion:  b.Suggestion,
		})
	}

	return result
}

package rosterfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// BottleneckEntry is an unfilled requirement in a solution file
type BottleneckEntry struct {
	Date       string `yaml:"date"`
	Timeblock  string `yaml:"timeblock"`
	Service    string `yaml:"service"`
	Team       string `yaml:"team,omitempty"`
	Needed     int    `yaml:"needed"`
	Assigned   int    `yaml:"assigned"`
	Shortage   int    `yaml:"shortage"`
	Reason     string `yaml:"reason"`
	Suggestion string `yaml:"suggestion,omitempty"`
}

// Solution is the on-disk form of a solve result
type Solution struct {
	RunID           string            `yaml:"runId,omitempty"`
	RosterID        string            `yaml:"rosterId,omitempty"`
	Status          string            `yaml:"status,omitempty"`
	CoveragePercent float64           `yaml:"coveragePercent"`
	Assignments     []AssignmentEntry `yaml:"assignments" validate:"dive"`
	Bottlenecks     []BottleneckEntry `yaml:"bottlenecks,omitempty"`
}

// NewSolution converts solver output into its file form
func NewSolution(out *solver.Output) Solution {
	s := Solution{
		RunID:           out.RunID,
		RosterID:        out.RosterID,
		Status:          string(out.Status),
		CoveragePercent: out.CoveragePercent,
		Assignments:     make([]AssignmentEntry, 0, len(out.Assignments)),
	}
	for _, a := range out.Assignments {
		s.Assignments = append(s.Assignments, AssignmentEntry{
			Worker:    a.WorkerID,
			Date:      a.Date,
			Timeblock: string(a.Timeblock),
			Service:   a.ServiceCode,
			Status:    string(a.Status),
			Source:    string(a.Source),
		})
	}
	for _, b := range out.Bottlenecks {
		s.Bottlenecks = append(s.Bottlenecks, BottleneckEntry{
			Date:       b.Date,
			Timeblock:  string(b.Timeblock),
			Service:    b.ServiceCode,
			Team:       b.Team,
			Needed:     b.Needed,
			Assigned:   b.Assigned,
			Shortage:   b.Shortage,
			Reason:     string(b.Reason),
			Suggestion: b.Suggestion,
		})
	}
	return s
}

// SaveSolution writes solver output to a YAML file
func SaveSolution(path string, out *solver.Output) error {
	data, err := yaml.Marshal(NewSolution(out))
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write solution file: %w", err)
	}
	return nil
}

// LoadSolution reads the assignments of a solution file. Entries without a source are
// treated as produced by an external solver and reported as greedy.
func LoadSolution(path string) ([]model.Assignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution file: %w", err)
	}

	var s Solution
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse solution file: %w", err)
	}

	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("solution file validation failed: %w", err)
	}

	assignments := make([]model.Assignment, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		assignments = append(assignments, a.toAssignment(model.SourceGreedy))
	}
	return assignments, nil
}

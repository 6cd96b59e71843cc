// Package relaxation decides whether soft constraint violations may be accepted given the
// coverage a run achieved.
package relaxation

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

// Decision is the outcome for one constraint
type Decision string

const (
	Relaxed Decision = "RELAXED"
	Blocked Decision = "BLOCKED"
)

// Category groups constraint priorities
type Category string

const (
	CategoryCritical   Category = "critical"
	CategoryImportant  Category = "important"
	CategoryNiceToHave Category = "nice-to-have"
)

// DefaultPriority applies to violation types without a configured priority
const DefaultPriority = 5

// Policy holds the coverage thresholds (percent) and per-type priorities
type Policy struct {
	// CriticalCoverageThreshold gates priorities 1-3
	CriticalCoverageThreshold float64

	// ImportantCoverageThreshold gates priorities 4-6
	ImportantCoverageThreshold float64

	// Priorities maps violation types to a priority from 1 (most important) to 10
	Priorities map[validation.ViolationType]int
}

// DefaultPolicy returns the standard thresholds and priorities
func DefaultPolicy() Policy {
	return Policy{
		CriticalCoverageThreshold:  80,
		ImportantCoverageThreshold: 85,
		Priorities: map[validation.ViolationType]int{
			validation.TypeOutsidePeriod:      2,
			validation.TypeConsecutiveDays:    3,
			validation.TypeInsufficientRest:   4,
			validation.TypeTeamMismatch:       5,
			validation.TypeFairnessOverTarget: 7,
			validation.TypeUnderstaffed:       9,
		},
	}
}

// Constraint is a named constraint with its priority
type Constraint struct {
	Name     string
	Priority int

	// Hard constraints are never relaxable
	Hard bool
}

// Outcome records one decision with the coverage that triggered it
type Outcome struct {
	Constraint Constraint `json:"constraint"`
	Decision   Decision   `json:"decision"`
	Coverage   float64    `json:"coverage"`
}

// Acceptance is the verdict on a validated solution
type Acceptance struct {
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
}

// Manager applies a Policy. It is consulted by callers deciding whether to accept a
// partially violating solution, never by the engine itself.
type Manager struct {
	policy Policy
	logger *zap.Logger
}

// NewManager creates a Manager; zero thresholds fall back to the defaults
func NewManager(policy Policy, logger *zap.Logger) *Manager {
	defaults := DefaultPolicy()
	if policy.CriticalCoverageThreshold == 0 {
		policy.CriticalCoverageThreshold = defaults.CriticalCoverageThreshold
	}
	if policy.ImportantCoverageThreshold == 0 {
		policy.ImportantCoverageThreshold = defaults.ImportantCoverageThreshold
	}
	if policy.Priorities == nil {
		policy.Priorities = defaults.Priorities
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{policy: policy, logger: logger}
}

// CategoryOf maps a priority onto its category
func CategoryOf(priority int) (Category, error) {
	switch {
	case priority >= 1 && priority <= 3:
		return CategoryCritical, nil
	case priority >= 4 && priority <= 6:
		return CategoryImportant, nil
	case priority >= 7 && priority <= 10:
		return CategoryNiceToHave, nil
	default:
		return "", model.NewDataError("relaxation.CategoryOf", "priority %d is outside 1-10", priority)
	}
}

// Decide returns RELAXED or BLOCKED for a constraint at the given coverage percent
func (m *Manager) Decide(c Constraint, coverage float64) (Decision, error) {
	decision, category, err := m.decide(c, coverage)
	if err != nil {
		return "", err
	}

	m.logger.Info("Relaxation decision",
		zap.String("constraint", c.Name),
		zap.Int("priority", c.Priority),
		zap.String("category", string(category)),
		zap.Bool("hard", c.Hard),
		zap.Float64("coverage_percent", coverage),
		zap.String("decision", string(decision)))

	return decision, nil
}

func (m *Manager) decide(c Constraint, coverage float64) (Decision, Category, error) {
	if c.Hard {
		return Blocked, "", nil
	}
	category, err := CategoryOf(c.Priority)
	if err != nil {
		return "", "", err
	}
	switch category {
	case CategoryCritical:
		if coverage < m.policy.CriticalCoverageThreshold {
			return Relaxed, category, nil
		}
	case CategoryImportant:
		if coverage < m.policy.ImportantCoverageThreshold {
			return Relaxed, category, nil
		}
	case CategoryNiceToHave:
		return Relaxed, category, nil
	}
	return Blocked, category, nil
}

// PriorityOf returns the configured priority for a violation type
func (m *Manager) PriorityOf(t validation.ViolationType) int {
	if p, ok := m.policy.Priorities[t]; ok {
		return p
	}
	return DefaultPriority
}

// AcceptReport decides every warning type in the report. The solution is accepted iff it
// has no critical violation and no warning type is blocked.
func (m *Manager) AcceptReport(report validation.Report, coverage float64) (Acceptance, error) {
	acceptance := Acceptance{Accepted: true, Outcomes: []Outcome{}}

	if report.CriticalCount > 0 {
		acceptance.Accepted = false
		acceptance.Reason = fmt.Sprintf("%d critical violation(s)", report.CriticalCount)
	}

	warned := make(map[validation.ViolationType]bool)
	for _, v := range report.Violations {
		switch v.Severity {
		case validation.SeverityCritical:
			warned[v.Type] = false
		case validation.SeverityWarning:
			if _, seen := warned[v.Type]; !seen {
				warned[v.Type] = true
			}
		}
	}

	types := make([]validation.ViolationType, 0, len(warned))
	for t := range warned {
		types = append(types, t)
	}
	slices.Sort(types)

	var blocked []string
	for _, t := range types {
		c := Constraint{Name: string(t), Priority: m.PriorityOf(t), Hard: !warned[t]}
		decision, err := m.Decide(c, coverage)
		if err != nil {
			return Acceptance{}, fmt.Errorf("failed to decide %s: %w", t, err)
		}
		acceptance.Outcomes = append(acceptance.Outcomes, Outcome{Constraint: c, Decision: decision, Coverage: coverage})
		if decision == Blocked && !c.Hard {
			blocked = append(blocked, string(t))
		}
	}

	if len(blocked) > 0 {
		acceptance.Accepted = false
		if acceptance.Reason != "" {
			acceptance.Reason += "; "
		}
		acceptance.Reason += fmt.Sprintf("blocked soft constraint(s): %v", blocked)
	}
	return acceptance, nil
}

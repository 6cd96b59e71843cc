// Package validation checks a finished roster against hard and soft constraints,
// independent of how it was produced.
package validation

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/pairing"
)

// Severity ranks violations
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// ViolationType names the constraint a violation breaks
type ViolationType string

const (
	TypeUnknownWorker       ViolationType = "unknown_worker"
	TypeUnavailable         ViolationType = "unavailable"
	TypeCapability          ViolationType = "capability"
	TypeDoubleBooking       ViolationType = "double_booking"
	TypeQuotaExceeded       ViolationType = "quota_exceeded"
	TypeShiftCeiling        ViolationType = "shift_ceiling"
	TypeHardPairing         ViolationType = "hard_pairing"
	TypeTeamMismatch        ViolationType = "team_mismatch"
	TypeOutsidePeriod       ViolationType = "outside_period"
	TypeConsecutiveDays     ViolationType = "consecutive_days"
	TypeInsufficientRest    ViolationType = "insufficient_rest"
	TypeUnderstaffed        ViolationType = "understaffed"
	TypeOverstaffed         ViolationType = "overstaffed"
	TypeFairnessOverTarget  ViolationType = "fairness_over_target"
	TypeFairnessUnderTarget ViolationType = "fairness_under_target"
)

// Violation is one broken constraint
type Violation struct {
	Type        ViolationType   `json:"type"`
	Severity    Severity        `json:"severity"`
	WorkerID    string          `json:"workerId,omitempty"`
	Date        string          `json:"date,omitempty"`
	Timeblock   model.Timeblock `json:"timeblock,omitempty"`
	ServiceCode string          `json:"serviceCode,omitempty"`
	Message     string          `json:"message"`
}

// Constraints are the soft limits the validator enforces
type Constraints struct {
	// MaxConsecutiveDays is the longest allowed working streak (0 disables the check)
	MaxConsecutiveDays int

	// MinRestDays is the minimum number of free days between streaks (0 disables the check)
	MinRestDays int

	// FairnessTolerance is how far assigned shifts may drift from the target
	FairnessTolerance int
}

// DefaultConstraints returns the limits used when none are configured
func DefaultConstraints() Constraints {
	return Constraints{MaxConsecutiveDays: 6, MinRestDays: 1, FairnessTolerance: 1}
}

// Input is a solution and the roster data it is checked against
type Input struct {
	PeriodStart string
	PeriodEnd   string

	Assignments  []model.Assignment
	Workers      []model.Worker
	Services     []model.ServiceType
	Requirements []model.Requirement
	PairingRules []pairing.Rule
	Blackouts    []model.BlackoutSlot
}

// Report aggregates the violations of one solution
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`

	CriticalCount int `json:"criticalCount"`
	WarningCount  int `json:"warningCount"`
	InfoCount     int `json:"infoCount"`

	ByType map[ViolationType]int `json:"byType"`
}

// HasType reports whether the report contains a violation of type t
func (r Report) HasType(t ViolationType) bool {
	return r.ByType[t] > 0
}

// Validate checks the solution. It is stateless and never mutates its input; identical
// input always yields an identical report.
func Validate(in Input, c Constraints) Report {
	v := &validator{
		in:        in,
		c:         c,
		workers:   make(map[string]model.Worker, len(in.Workers)),
		services:  make(map[string]model.ServiceType, len(in.Services)),
		blackouts: make(map[model.WorkerSlotKey]bool, len(in.Blackouts)),
	}
	for _, w := range in.Workers {
		v.workers[w.ID] = w
	}
	for _, s := range in.Services {
		v.services[s.Code] = s
	}
	for _, b := range in.Blackouts {
		v.blackouts[model.WorkerSlotKey{WorkerID: b.WorkerID, Date: b.Date, Timeblock: b.Timeblock}] = true
	}
	for _, a := range in.Assignments {
		if a.IsActive() {
			v.active = append(v.active, a)
		}
	}

	v.checkAssignments()
	v.checkWorkload()
	v.checkPairing()
	v.checkStreaks()
	v.checkCoverage()
	v.checkFairness()

	return v.report()
}

type validator struct {
	in        Input
	c         Constraints
	workers   map[string]model.Worker
	services  map[string]model.ServiceType
	blackouts map[model.WorkerSlotKey]bool
	active    []model.Assignment

	violations []Violation
}

func (v *validator) add(t ViolationType, s Severity, a model.Assignment, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Type:        t,
		Severity:    s,
		WorkerID:    a.WorkerID,
		Date:        a.Date,
		Timeblock:   a.Timeblock,
		ServiceCode: a.ServiceCode,
		Message:     fmt.Sprintf(format, args...),
	})
}

// checkAssignments applies the per-assignment hard checks
func (v *validator) checkAssignments() {
	occupied := make(map[model.WorkerSlotKey]model.Assignment, len(v.active))

	for _, a := range v.active {
		if existing, ok := occupied[a.WorkerSlot()]; ok {
			v.add(TypeDoubleBooking, SeverityCritical, a, "worker %s is assigned %s and %s on %s %s",
				a.WorkerID, existing.ServiceCode, a.ServiceCode, a.Date, a.Timeblock)
		} else {
			occupied[a.WorkerSlot()] = a
		}

		if v.in.PeriodStart != "" && (a.Date < v.in.PeriodStart || a.Date > v.in.PeriodEnd) {
			v.add(TypeOutsidePeriod, SeverityWarning, a, "assignment on %s is outside the period %s..%s",
				a.Date, v.in.PeriodStart, v.in.PeriodEnd)
		}

		w, ok := v.workers[a.WorkerID]
		if !ok {
			v.add(TypeUnknownWorker, SeverityCritical, a, "assignment references unknown worker %s", a.WorkerID)
			continue
		}

		if v.blackouts[a.WorkerSlot()] || w.IsStructurallyUnavailable(a.Date, a.Timeblock) {
			v.add(TypeUnavailable, SeverityCritical, a, "worker %s is unavailable on %s %s", a.WorkerID, a.Date, a.Timeblock)
		}

		if _, capable := w.Capability(a.ServiceCode); !capable {
			v.add(TypeCapability, SeverityCritical, a, "worker %s is not trained for %s", a.WorkerID, a.ServiceCode)
		}

		if !v.teamAllowed(w, a) {
			v.add(TypeTeamMismatch, SeverityWarning, a, "worker %s of team %s serves %s outside its team scope",
				a.WorkerID, model.NormalizeTeam(w.Team), a.ServiceCode)
		}
	}
}

// teamAllowed matches the worker against the requirement scopes for the slot, falling back
// to the service's team affinity
func (v *validator) teamAllowed(w model.Worker, a model.Assignment) bool {
	var scopes []string
	for _, r := range v.in.Requirements {
		if r.Date != a.Date || r.Timeblock != a.Timeblock || r.ServiceCode != a.ServiceCode {
			continue
		}
		scope := model.NormalizeTeam(r.Team)
		if scope == model.TeamAny {
			scope = model.NormalizeTeam(v.services[a.ServiceCode].Team)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = append(scopes, model.NormalizeTeam(v.services[a.ServiceCode].Team))
	}
	for _, scope := range scopes {
		if model.TeamMatches(w.Team, scope) {
			return true
		}
	}
	return false
}

// checkWorkload verifies quotas and shift ceilings
func (v *validator) checkWorkload() {
	type key struct{ worker, service string }
	counts := make(map[key]int)
	shifts := make(map[string]int)
	for _, a := range v.active {
		counts[key{a.WorkerID, a.ServiceCode}]++
		shifts[a.WorkerID]++
	}

	for _, w := range v.in.Workers {
		for _, c := range w.Capabilities {
			if c.Quota == nil {
				continue
			}
			if n := counts[key{w.ID, c.ServiceCode}]; n > *c.Quota {
				v.add(TypeQuotaExceeded, SeverityCritical, model.Assignment{WorkerID: w.ID, ServiceCode: c.ServiceCode},
					"worker %s has %d assignments of %s, quota is %d", w.ID, n, c.ServiceCode, *c.Quota)
			}
		}
		if w.MaxShifts != nil && shifts[w.ID] > *w.MaxShifts {
			v.add(TypeShiftCeiling, SeverityCritical, model.Assignment{WorkerID: w.ID},
				"worker %s has %d shifts, ceiling is %d", w.ID, shifts[w.ID], *w.MaxShifts)
		}
	}
}

// checkPairing flags hard rules broken across consecutive days
func (v *validator) checkPairing() {
	held := make(map[model.WorkerSlotKey][]string, len(v.active))
	for _, a := range v.active {
		held[a.WorkerSlot()] = append(held[a.WorkerSlot()], a.ServiceCode)
	}

	for _, a := range v.active {
		for _, rule := range v.in.PairingRules {
			if rule.Kind != pairing.KindHard || rule.First != a.ServiceCode {
				continue
			}
			next, err := model.AddDays(a.Date, 1)
			if err != nil {
				continue
			}
			key := model.WorkerSlotKey{WorkerID: a.WorkerID, Date: next, Timeblock: a.Timeblock}
			if slices.Contains(held[key], rule.Second) {
				v.add(TypeHardPairing, SeverityCritical,
					model.Assignment{WorkerID: a.WorkerID, Date: next, Timeblock: a.Timeblock, ServiceCode: rule.Second},
					"%s broken: worker %s holds %s on %s after %s on %s", rule, a.WorkerID, rule.Second, next, a.ServiceCode, a.Date)
			}
		}
	}
}

// checkStreaks warns on long working streaks and short rest between streaks
func (v *validator) checkStreaks() {
	if v.c.MaxConsecutiveDays <= 0 && v.c.MinRestDays <= 0 {
		return
	}

	days := make(map[string][]string)
	for _, a := range v.active {
		if !slices.Contains(days[a.WorkerID], a.Date) {
			days[a.WorkerID] = append(days[a.WorkerID], a.Date)
		}
	}

	for workerID, dates := range days {
		slices.Sort(dates)

		streakStart, streakLen := dates[0], 1
		flush := func() {
			if v.c.MaxConsecutiveDays > 0 && streakLen > v.c.MaxConsecutiveDays {
				v.add(TypeConsecutiveDays, SeverityWarning, model.Assignment{WorkerID: workerID, Date: streakStart},
					"worker %s works %d consecutive days from %s, maximum is %d",
					workerID, streakLen, streakStart, v.c.MaxConsecutiveDays)
			}
		}

		for i := 1; i < len(dates); i++ {
			gap, err := model.DaysBetween(dates[i-1], dates[i])
			if err != nil {
				continue
			}
			if gap == 1 {
				streakLen++
				continue
			}
			flush()
			if rest := gap - 1; v.c.MinRestDays > 0 && rest < v.c.MinRestDays {
				v.add(TypeInsufficientRest, SeverityWarning, model.Assignment{WorkerID: workerID, Date: dates[i]},
					"worker %s rests %d day(s) before %s, minimum is %d", workerID, rest, dates[i], v.c.MinRestDays)
			}
			streakStart, streakLen = dates[i], 1
		}
		flush()
	}
}

// checkCoverage compares actual and required headcount per service slot
func (v *validator) checkCoverage() {
	required := make(map[model.ServiceSlotKey]int)
	for _, r := range v.in.Requirements {
		required[model.ServiceSlotKey{Date: r.Date, Timeblock: r.Timeblock, ServiceCode: r.ServiceCode}] += r.Count
	}
	actual := make(map[model.ServiceSlotKey]int)
	for _, a := range v.active {
		actual[model.ServiceSlotKey{Date: a.Date, Timeblock: a.Timeblock, ServiceCode: a.ServiceCode}]++
	}

	keys := make(map[model.ServiceSlotKey]bool, len(required)+len(actual))
	for k := range required {
		keys[k] = true
	}
	for k := range actual {
		keys[k] = true
	}

	for k := range keys {
		slot := model.Assignment{Date: k.Date, Timeblock: k.Timeblock, ServiceCode: k.ServiceCode}
		switch need, got := required[k], actual[k]; {
		case got < need:
			v.add(TypeUnderstaffed, SeverityWarning, slot, "%s on %s %s has %d of %d required", k.ServiceCode, k.Date, k.Timeblock, got, need)
		case got > need:
			v.add(TypeOverstaffed, SeverityInfo, slot, "%s on %s %s has %d, %d required", k.ServiceCode, k.Date, k.Timeblock, got, need)
		}
	}
}

// checkFairness compares assigned shifts to each worker's target
func (v *validator) checkFairness() {
	shifts := make(map[string]int)
	for _, a := range v.active {
		shifts[a.WorkerID]++
	}
	for _, w := range v.in.Workers {
		if w.TargetShifts <= 0 {
			continue
		}
		switch diff := shifts[w.ID] - w.TargetShifts; {
		case diff > v.c.FairnessTolerance:
			v.add(TypeFairnessOverTarget, SeverityWarning, model.Assignment{WorkerID: w.ID},
				"worker %s has %d shifts, target is %d", w.ID, shifts[w.ID], w.TargetShifts)
		case diff < -v.c.FairnessTolerance:
			v.add(TypeFairnessUnderTarget, SeverityInfo, model.Assignment{WorkerID: w.ID},
				"worker %s has %d shifts, target is %d", w.ID, shifts[w.ID], w.TargetShifts)
		}
	}
}

func (v *validator) report() Report {
	slices.SortFunc(v.violations, func(a, b Violation) int {
		if c := cmp.Compare(a.Severity.rank(), b.Severity.rank()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Timeblock, b.Timeblock); c != 0 {
			return c
		}
		if c := cmp.Compare(a.WorkerID, b.WorkerID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ServiceCode, b.ServiceCode); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})

	r := Report{
		Violations: v.violations,
		ByType:     make(map[ViolationType]int),
	}
	if r.Violations == nil {
		r.Violations = []Violation{}
	}
	for _, violation := range r.Violations {
		r.ByType[violation.Type]++
		switch violation.Severity {
		case SeverityCritical:
			r.CriticalCount++
		case SeverityWarning:
			r.WarningCount++
		default:
			r.InfoCount++
		}
	}
	r.Valid = r.CriticalCount == 0
	return r
}

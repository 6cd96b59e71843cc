// Package pairing implements the blocking calendar: sequential rules between service
// codes on consecutive days in the same timeblock.
package pairing

import (
	"fmt"

	"github.com/jakechorley/duty-roster/pkg/core/model"
)

// Kind says whether a rule forbids or merely discourages the pairing
type Kind string

const (
	KindHard Kind = "hard"
	KindSoft Kind = "soft"
)

// DefaultSoftPenalty is used for soft rules without an explicit penalty
const DefaultSoftPenalty = 1.0

// Rule links service First on day D to service Second on day D+1 in the same timeblock
type Rule struct {
	First       string  `json:"firstCode"`
	Second      string  `json:"secondCode"`
	Kind        Kind    `json:"kind"`
	Description string  `json:"description,omitempty"`
	Penalty     float64 `json:"penalty,omitempty"`
}

func (r Rule) String() string {
	s := fmt.Sprintf("%s rule %s->%s", r.Kind, r.First, r.Second)
	if r.Description != "" {
		s += " (" + r.Description + ")"
	}
	return s
}

// Blocker receives the hard blocks the engine materializes
type Blocker interface {
	Block(b model.BlockedSlot) bool
	Occupant(workerID, date string, timeblock model.Timeblock) (model.Assignment, bool)
}

// Engine is the per-run blocking calendar
type Engine struct {
	rulesByFirst   map[string][]Rule
	rules          []Rule
	blocker        Blocker
	defaultPenalty float64

	// history is the service code each worker holds per slot
	history map[model.WorkerSlotKey]string

	// hardMarks and softMarks are the rules fired onto a (worker, next day, timeblock)
	hardMarks map[model.WorkerSlotKey][]Rule
	softMarks map[model.WorkerSlotKey][]Rule
}

// NewEngine validates the rules and creates an empty calendar.
// defaultPenalty applies to soft rules without their own penalty (0 uses DefaultSoftPenalty).
func NewEngine(rules []Rule, blocker Blocker, defaultPenalty float64) (*Engine, error) {
	if defaultPenalty == 0 {
		defaultPenalty = DefaultSoftPenalty
	}
	e := &Engine{
		rulesByFirst:   make(map[string][]Rule),
		blocker:        blocker,
		defaultPenalty: defaultPenalty,
	}
	for i, r := range rules {
		if r.First == "" || r.Second == "" {
			return nil, model.NewDataError("pairing.NewEngine", "rule %d has an empty service code", i)
		}
		if r.Kind != KindHard && r.Kind != KindSoft {
			return nil, model.NewDataError("pairing.NewEngine", "rule %d has unknown kind %q", i, r.Kind)
		}
		if r.Penalty < 0 {
			return nil, model.NewDataError("pairing.NewEngine", "rule %d has a negative penalty", i)
		}
		e.rules = append(e.rules, r)
		e.rulesByFirst[r.First] = append(e.rulesByFirst[r.First], r)
	}
	e.Reset()
	return e, nil
}

// Rules returns the configured rules in input order
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Reset clears the calendar so the engine can serve another run
func (e *Engine) Reset() {
	e.history = make(map[model.WorkerSlotKey]string)
	e.hardMarks = make(map[model.WorkerSlotKey][]Rule)
	e.softMarks = make(map[model.WorkerSlotKey][]Rule)
}

// OnAssignmentMade fires every rule triggered by an active assignment.
// Hard rules block the worker's next-day slot in the tracker; soft rules leave a penalty.
func (e *Engine) OnAssignmentMade(a model.Assignment) error {
	const op = "pairing.OnAssignmentMade"

	e.history[a.WorkerSlot()] = a.ServiceCode

	rules := e.rulesByFirst[a.ServiceCode]
	if len(rules) == 0 {
		return nil
	}

	nextDate, err := model.AddDays(a.Date, 1)
	if err != nil {
		return &model.SolveError{Kind: model.KindData, Op: op, Message: "bad assignment date", Err: err}
	}
	next := model.WorkerSlotKey{WorkerID: a.WorkerID, Date: nextDate, Timeblock: a.Timeblock}

	for _, rule := range rules {
		if rule.Kind == KindSoft {
			e.softMarks[next] = append(e.softMarks[next], rule)
			continue
		}

		e.hardMarks[next] = append(e.hardMarks[next], rule)

		occupant, occupied := e.blocker.Occupant(a.WorkerID, nextDate, a.Timeblock)
		if occupied {
			if occupant.ServiceCode == rule.Second {
				return model.NewDataError(op, "worker %q holds %s on %s %s which %s forbids after %s on %s",
					a.WorkerID, occupant.ServiceCode, nextDate, a.Timeblock, rule, a.ServiceCode, a.Date)
			}
			// Slot already taken by an unrelated service; nothing to block
			continue
		}

		e.blocker.Block(model.BlockedSlot{
			WorkerID:  a.WorkerID,
			Date:      nextDate,
			Timeblock: a.Timeblock,
			Reason:    fmt.Sprintf("%s after %s on %s", rule, a.ServiceCode, a.Date),
			Trigger:   a,
		})
	}
	return nil
}

// IsEligibleForAssignment applies hard rules only; soft rules never block
func (e *Engine) IsEligibleForAssignment(workerID, date string, timeblock model.Timeblock, serviceCode string) (bool, string) {
	key := model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}
	for _, rule := range e.hardMarks[key] {
		if rule.Second == serviceCode {
			return false, fmt.Sprintf("%s forbids %s on %s %s", rule, serviceCode, date, timeblock)
		}
	}

	// The reverse direction: taking First today when Second is already held tomorrow
	for _, rule := range e.rulesByFirst[serviceCode] {
		if rule.Kind != KindHard {
			continue
		}
		nextDate, err := model.AddDays(date, 1)
		if err != nil {
			return false, err.Error()
		}
		held := e.history[model.WorkerSlotKey{WorkerID: workerID, Date: nextDate, Timeblock: timeblock}]
		if held == rule.Second {
			return false, fmt.Sprintf("%s conflicts with %s already held on %s %s", rule, held, nextDate, timeblock)
		}
	}
	return true, ""
}

// Penalty returns the (non-positive) score contribution of soft rules for a candidate
func (e *Engine) Penalty(workerID, date string, timeblock model.Timeblock, serviceCode string) float64 {
	penalty := 0.0
	for _, rule := range e.softMarks[model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}] {
		if rule.Second != serviceCode {
			continue
		}
		if rule.Penalty > 0 {
			penalty -= rule.Penalty
		} else {
			penalty -= e.defaultPenalty
		}
	}
	return penalty
}

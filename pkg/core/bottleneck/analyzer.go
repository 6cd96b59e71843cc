// Package bottleneck explains why requirements could not be staffed.
package bottleneck

import (
	"fmt"

	"github.com/jakechorley/duty-roster/pkg/core/availability"
	"github.com/jakechorley/duty-roster/pkg/core/model"
)

// Counts breaks down the worker pool considered for a bottleneck
type Counts struct {
	// Capable workers in scope that are not already serving the requirement
	Capable int

	// Blocked capable workers (pairing, blackout, weekly pattern or another assignment)
	Blocked int

	// PairingBlocked is the subset of Blocked held by the pairing calendar
	PairingBlocked int

	// Exhausted unblocked workers at quota or shift ceiling
	Exhausted int
}

// PairingView answers hard pairing verdicts over the final calendar of a run
type PairingView interface {
	IsEligibleForAssignment(workerID, date string, timeblock model.Timeblock, serviceCode string) (bool, string)
}

// Analyzer diagnoses bottlenecks over the final state of a run. It never mutates the run.
type Analyzer struct {
	pairing PairingView

	workers   []model.Worker
	quota     map[string]map[string]int
	consumed  map[string]map[string]int
	shifts    map[string]int
	occupied  map[model.WorkerSlotKey]string
	blocked   map[model.WorkerSlotKey]model.BlockedSlot
	blackouts map[model.WorkerSlotKey]bool
}

// NewAnalyzer indexes a tracker snapshot
func NewAnalyzer(s availability.Snapshot) *Analyzer {
	a := &Analyzer{
		workers:   s.Workers,
		quota:     make(map[string]map[string]int, len(s.Workers)),
		consumed:  make(map[string]map[string]int, len(s.Workers)),
		shifts:    make(map[string]int, len(s.Workers)),
		occupied:  make(map[model.WorkerSlotKey]string, len(s.Assignments)),
		blocked:   make(map[model.WorkerSlotKey]model.BlockedSlot, len(s.BlockedSlots)),
		blackouts: s.Blackouts,
	}
	for _, w := range s.Workers {
		quotas := make(map[string]int, len(w.Capabilities))
		for _, c := range w.Capabilities {
			if c.Quota == nil {
				quotas[c.ServiceCode] = availability.Unbounded
			} else {
				quotas[c.ServiceCode] = *c.Quota
			}
		}
		a.quota[w.ID] = quotas
		a.consumed[w.ID] = make(map[string]int)
	}
	for _, asg := range s.Assignments {
		if !asg.IsActive() {
			continue
		}
		a.occupied[asg.WorkerSlot()] = asg.ServiceCode
		if a.consumed[asg.WorkerID] == nil {
			a.consumed[asg.WorkerID] = make(map[string]int)
		}
		a.consumed[asg.WorkerID][asg.ServiceCode]++
		a.shifts[asg.WorkerID]++
	}
	for _, b := range s.BlockedSlots {
		a.blocked[model.WorkerSlotKey{WorkerID: b.WorkerID, Date: b.Date, Timeblock: b.Timeblock}] = b
	}
	return a
}

// Diagnose applies the ordered checks: no capability, all blocked (pairing conflict when
// the calendar holds any of them), workload exceeded, otherwise insufficient available
func (a *Analyzer) Diagnose(b model.Bottleneck) (model.BottleneckReason, Counts) {
	var counts Counts

	for _, w := range a.workers {
		if _, capable := a.quota[w.ID][b.ServiceCode]; !capable {
			continue
		}
		if !model.TeamMatches(w.Team, b.Team) {
			continue
		}

		key := model.WorkerSlotKey{WorkerID: w.ID, Date: b.Date, Timeblock: b.Timeblock}
		held, occupied := a.occupied[key]
		if occupied && held == b.ServiceCode {
			// Already serving this requirement
			continue
		}
		counts.Capable++

		_, pairingBlocked := a.blocked[key]
		if !pairingBlocked && !occupied {
			pairingBlocked = a.pairingExcludes(w, b)
		}
		switch {
		case pairingBlocked:
			counts.Blocked++
			counts.PairingBlocked++
			continue
		case occupied, a.blackouts[key], w.IsStructurallyUnavailable(b.Date, b.Timeblock):
			counts.Blocked++
			continue
		}

		if a.exhausted(w, b.ServiceCode) {
			counts.Exhausted++
		}
	}

	switch {
	case counts.Capable == 0:
		return model.ReasonNoCapability, counts
	case counts.Blocked == counts.Capable && counts.PairingBlocked > 0:
		return model.ReasonPairingConflict, counts
	case counts.Blocked == counts.Capable:
		return model.ReasonAllBlocked, counts
	case counts.Exhausted == counts.Capable-counts.Blocked:
		return model.ReasonWorkloadExceeded, counts
	default:
		return model.ReasonInsufficientAvailable, counts
	}
}

func (a *Analyzer) exhausted(w model.Worker, serviceCode string) bool {
	if w.MaxShifts != nil && a.shifts[w.ID] >= *w.MaxShifts {
		return true
	}
	quota := a.quota[w.ID][serviceCode]
	return quota != availability.Unbounded && a.consumed[w.ID][serviceCode] >= quota
}

// WithPairing lets the diagnosis see hard pairing exclusions that never materialize as
// blocked slots, such as taking a first service the day before a held second service
func (a *Analyzer) WithPairing(p PairingView) *Analyzer {
	a.pairing = p
	return a
}

func (a *Analyzer) pairingExcludes(w model.Worker, b model.Bottleneck) bool {
	if a.pairing == nil {
		return false
	}
	ok, _ := a.pairing.IsEligibleForAssignment(w.ID, b.Date, b.Timeblock, b.ServiceCode)
	return !ok
}

// Enrich returns the bottleneck with its diagnosed reason and suggestion
func (a *Analyzer) Enrich(b model.Bottleneck) model.Bottleneck {
	reason, counts := a.Diagnose(b)
	b.Reason = reason
	b.Suggestion = Suggest(b, counts)
	return b
}

// EnrichAll enriches every bottleneck, preserving order
func (a *Analyzer) EnrichAll(bottlenecks []model.Bottleneck) []model.Bottleneck {
	result := make([]model.Bottleneck, len(bottlenecks))
	for i, b := range bottlenecks {
		result[i] = a.Enrich(b)
	}
	return result
}

// Suggest renders the fixed suggestion template for a diagnosed bottleneck
func Suggest(b model.Bottleneck, counts Counts) string {
	switch b.Reason {
	case model.ReasonNoCapability:
		return fmt.Sprintf("train %d more worker(s) in service %s before %s", b.Shortage, b.ServiceCode, b.Date)
	case model.ReasonAllBlocked:
		return fmt.Sprintf("all %d capable worker(s) for %s are unavailable on %s %s; review blackouts and weekly patterns or train %d more worker(s)",
			counts.Capable, b.ServiceCode, b.Date, b.Timeblock, b.Shortage)
	case model.ReasonPairingConflict:
		return fmt.Sprintf("%d of %d capable worker(s) for %s are blocked by pairing rules on %s %s; rebalance the previous day's %s assignments or relax the rule",
			counts.PairingBlocked, counts.Capable, b.ServiceCode, b.Date, b.Timeblock, b.Timeblock)
	case model.ReasonWorkloadExceeded:
		return fmt.Sprintf("%d capable worker(s) for %s reached their quota or shift ceiling; raise quotas by %d or train more workers before %s",
			counts.Exhausted, b.ServiceCode, b.Shortage, b.Date)
	default:
		return fmt.Sprintf("%d of %d position(s) for %s on %s %s remain open; add %d more eligible worker(s)",
			b.Shortage, b.Needed, b.ServiceCode, b.Date, b.Timeblock, b.Shortage)
	}
}

// Package availability tracks, for a single solve run, which workers can take which slots.
package availability

import (
	"cmp"
	"slices"

	"github.com/jakechorley/duty-roster/pkg/core/model"
)

// Unbounded is returned by RemainingQuota for capabilities without a quota
const Unbounded = -1

// Tracker is the per-run source of truth for eligibility and availability.
// A Tracker must never be shared between solve runs.
type Tracker struct {
	workers   map[string]model.Worker
	workerIDs []string

	// quota holds configured quotas per worker and service (Unbounded when nil)
	quota map[string]map[string]int

	// consumed counts active assignments per worker and service
	consumed map[string]map[string]int

	// shifts counts active assignments per worker across services
	shifts map[string]int

	occupied  map[model.WorkerSlotKey]model.Assignment
	blocked   map[model.WorkerSlotKey]model.BlockedSlot
	blackouts map[model.WorkerSlotKey]bool

	// structural memoizes weekly-pattern lookups for the lifetime of the run
	structural map[model.WorkerSlotKey]bool
}

// NewTracker builds the capability index for the given workers and blackout slots
func NewTracker(workers []model.Worker, blackouts []model.BlackoutSlot) (*Tracker, error) {
	t := &Tracker{
		workers:    make(map[string]model.Worker, len(workers)),
		quota:      make(map[string]map[string]int, len(workers)),
		consumed:   make(map[string]map[string]int, len(workers)),
		shifts:     make(map[string]int, len(workers)),
		occupied:   make(map[model.WorkerSlotKey]model.Assignment),
		blocked:    make(map[model.WorkerSlotKey]model.BlockedSlot),
		blackouts:  make(map[model.WorkerSlotKey]bool, len(blackouts)),
		structural: make(map[model.WorkerSlotKey]bool),
	}

	for _, w := range workers {
		if w.ID == "" {
			return nil, model.NewDataError("availability.NewTracker", "worker with empty id")
		}
		if _, exists := t.workers[w.ID]; exists {
			return nil, model.NewDataError("availability.NewTracker", "duplicate worker id %q", w.ID)
		}
		t.workers[w.ID] = w
		t.workerIDs = append(t.workerIDs, w.ID)

		quotas := make(map[string]int, len(w.Capabilities))
		for _, c := range w.Capabilities {
			if c.Quota == nil {
				quotas[c.ServiceCode] = Unbounded
				continue
			}
			if *c.Quota < 0 {
				return nil, model.NewDataError("availability.NewTracker", "worker %q has negative quota for %s", w.ID, c.ServiceCode)
			}
			quotas[c.ServiceCode] = *c.Quota
		}
		t.quota[w.ID] = quotas
		t.consumed[w.ID] = make(map[string]int)
	}
	slices.Sort(t.workerIDs)

	for _, b := range blackouts {
		if err := t.AddBlackout(b); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// AddBlackout marks a slot as externally forced unavailable
func (t *Tracker) AddBlackout(b model.BlackoutSlot) error {
	if _, ok := t.workers[b.WorkerID]; !ok {
		return model.NewDataError("availability.AddBlackout", "blackout references unknown worker %q", b.WorkerID)
	}
	t.blackouts[model.WorkerSlotKey{WorkerID: b.WorkerID, Date: b.Date, Timeblock: b.Timeblock}] = true
	return nil
}

// WorkerIDs returns every worker id in ascending order
func (t *Tracker) WorkerIDs() []string {
	return slices.Clone(t.workerIDs)
}

// Worker returns the worker record for id
func (t *Tracker) Worker(id string) (model.Worker, bool) {
	w, ok := t.workers[id]
	return w, ok
}

// HasCapability reports whether the worker is trained for the service, regardless of quota
func (t *Tracker) HasCapability(workerID, serviceCode string) bool {
	_, ok := t.quota[workerID][serviceCode]
	return ok
}

// IsEligible is true iff the worker is capable of the service, has quota left for it
// and is below their total shift ceiling
func (t *Tracker) IsEligible(workerID, serviceCode string) bool {
	if !t.HasCapability(workerID, serviceCode) {
		return false
	}
	remaining := t.RemainingQuota(workerID, serviceCode)
	if remaining != Unbounded && remaining <= 0 {
		return false
	}
	return !t.AtCeiling(workerID)
}

// AtCeiling reports whether the worker reached their optional MaxShifts
func (t *Tracker) AtCeiling(workerID string) bool {
	w, ok := t.workers[workerID]
	if !ok || w.MaxShifts == nil {
		return false
	}
	return t.shifts[workerID] >= *w.MaxShifts
}

// IsAvailable is false if the slot is blocked (pairing, blackout or weekly pattern)
// or the worker already holds an active assignment in it
func (t *Tracker) IsAvailable(workerID, date string, timeblock model.Timeblock) bool {
	key := model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}
	if _, ok := t.occupied[key]; ok {
		return false
	}
	if _, ok := t.blocked[key]; ok {
		return false
	}
	if t.blackouts[key] {
		return false
	}
	return !t.IsStructurallyBlocked(workerID, date, timeblock)
}

// IsStructurallyBlocked checks the worker's recurring weekday pattern
func (t *Tracker) IsStructurallyBlocked(workerID, date string, timeblock model.Timeblock) bool {
	key := model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}
	if blocked, ok := t.structural[key]; ok {
		return blocked
	}
	w, ok := t.workers[workerID]
	blocked := ok && w.IsStructurallyUnavailable(date, timeblock)
	t.structural[key] = blocked
	return blocked
}

// IsBlackedOut reports whether the slot is externally forced unavailable
func (t *Tracker) IsBlackedOut(workerID, date string, timeblock model.Timeblock) bool {
	return t.blackouts[model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}]
}

// Blocked returns the pairing block for a slot, if any
func (t *Tracker) Blocked(workerID, date string, timeblock model.Timeblock) (model.BlockedSlot, bool) {
	b, ok := t.blocked[model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}]
	return b, ok
}

// Occupant returns the active assignment holding a slot, if any
func (t *Tracker) Occupant(workerID, date string, timeblock model.Timeblock) (model.Assignment, bool) {
	a, ok := t.occupied[model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}]
	return a, ok
}

// RemainingQuota returns the assignments left for the worker and service.
// It returns Unbounded for capabilities without quota and 0 for missing capabilities.
func (t *Tracker) RemainingQuota(workerID, serviceCode string) int {
	quota, ok := t.quota[workerID][serviceCode]
	if !ok {
		return 0
	}
	if quota == Unbounded {
		return Unbounded
	}
	return max(quota-t.consumed[workerID][serviceCode], 0)
}

// QuotaRatio returns remaining/configured quota in [0,1]; unbounded capabilities return 1
func (t *Tracker) QuotaRatio(workerID, serviceCode string) float64 {
	quota, ok := t.quota[workerID][serviceCode]
	if !ok {
		return 0
	}
	if quota == Unbounded {
		return 1
	}
	if quota == 0 {
		return 0
	}
	return float64(t.RemainingQuota(workerID, serviceCode)) / float64(quota)
}

// AssignedShifts returns the worker's active assignment count across services
func (t *Tracker) AssignedShifts(workerID string) int {
	return t.shifts[workerID]
}

// AssignedCount returns the worker's active assignment count for one service
func (t *Tracker) AssignedCount(workerID, serviceCode string) int {
	return t.consumed[workerID][serviceCode]
}

// Reserve records a greedy assignment: it consumes quota and occupies the slot.
// Reserving an occupied slot or an ineligible worker is an invariant violation.
func (t *Tracker) Reserve(workerID, date string, timeblock model.Timeblock, serviceCode string) (model.Assignment, error) {
	const op = "availability.Reserve"

	if _, ok := t.workers[workerID]; !ok {
		return model.Assignment{}, model.NewInvariantViolation(op, "unknown worker %q", workerID)
	}
	key := model.WorkerSlotKey{WorkerID: workerID, Date: date, Timeblock: timeblock}
	if existing, ok := t.occupied[key]; ok {
		return model.Assignment{}, model.NewInvariantViolation(op,
			"double reservation of %s %s %s for worker %q (already holds %s)",
			date, timeblock, serviceCode, workerID, existing.ServiceCode)
	}
	if !t.IsEligible(workerID, serviceCode) {
		return model.Assignment{}, model.NewInvariantViolation(op,
			"worker %q has no remaining quota for %s", workerID, serviceCode)
	}

	a := model.Assignment{
		WorkerID:    workerID,
		Date:        date,
		Timeblock:   timeblock,
		ServiceCode: serviceCode,
		Status:      model.StatusActive,
		Source:      model.SourceGreedy,
	}
	t.record(a)
	return a, nil
}

// Preload records a pre-planned active assignment. Pre-planned data is never altered;
// conflicts within it are data errors.
func (t *Tracker) Preload(a model.Assignment) error {
	const op = "availability.Preload"

	if !a.IsActive() {
		return model.NewDataError(op, "pre-planned assignment for %q on %s %s is not active", a.WorkerID, a.Date, a.Timeblock)
	}
	if _, ok := t.workers[a.WorkerID]; !ok {
		return model.NewDataError(op, "pre-planned assignment references unknown worker %q", a.WorkerID)
	}
	if existing, ok := t.occupied[a.WorkerSlot()]; ok {
		return model.NewDataError(op, "worker %q has two pre-planned assignments on %s %s (%s, %s)",
			a.WorkerID, a.Date, a.Timeblock, existing.ServiceCode, a.ServiceCode)
	}
	if quota, ok := t.quota[a.WorkerID][a.ServiceCode]; ok && quota != Unbounded && t.consumed[a.WorkerID][a.ServiceCode] >= quota {
		return model.NewDataError(op, "pre-planned assignments exceed worker %q quota of %d for %s", a.WorkerID, quota, a.ServiceCode)
	}
	if t.AtCeiling(a.WorkerID) {
		return model.NewDataError(op, "pre-planned assignments exceed worker %q shift ceiling", a.WorkerID)
	}

	a.Source = model.SourcePrePlanned
	t.record(a)
	return nil
}

func (t *Tracker) record(a model.Assignment) {
	t.occupied[a.WorkerSlot()] = a
	t.consumed[a.WorkerID][a.ServiceCode]++
	t.shifts[a.WorkerID]++
}

// Block materializes a blocked slot. The first block recorded for a slot wins.
// It returns false when the slot was already blocked.
func (t *Tracker) Block(b model.BlockedSlot) bool {
	key := model.WorkerSlotKey{WorkerID: b.WorkerID, Date: b.Date, Timeblock: b.Timeblock}
	if _, exists := t.blocked[key]; exists {
		return false
	}
	t.blocked[key] = b
	return true
}

// BlockedSlots returns every materialized block ordered by date, timeblock and worker
func (t *Tracker) BlockedSlots() []model.BlockedSlot {
	result := make([]model.BlockedSlot, 0, len(t.blocked))
	for _, b := range t.blocked {
		result = append(result, b)
	}
	slices.SortFunc(result, func(a, b model.BlockedSlot) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Timeblock, b.Timeblock); c != 0 {
			return c
		}
		return cmp.Compare(a.WorkerID, b.WorkerID)
	})
	return result
}

// Snapshot copies the tracker's state for read-only analysis after the run
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Workers:      make([]model.Worker, 0, len(t.workerIDs)),
		Assignments:  make([]model.Assignment, 0, len(t.occupied)),
		BlockedSlots: t.BlockedSlots(),
		Blackouts:    make(map[model.WorkerSlotKey]bool, len(t.blackouts)),
	}
	for _, id := range t.workerIDs {
		s.Workers = append(s.Workers, t.workers[id])
	}
	for _, a := range t.occupied {
		s.Assignments = append(s.Assignments, a)
	}
	slices.SortFunc(s.Assignments, func(a, b model.Assignment) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Timeblock, b.Timeblock); c != 0 {
			return c
		}
		return cmp.Compare(a.WorkerID, b.WorkerID)
	})
	for k, v := range t.blackouts {
		s.Blackouts[k] = v
	}
	return s
}

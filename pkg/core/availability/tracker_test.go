package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/model"
)

func intPtr(i int) *int {
	return &i
}

// 2024-03-04 is a Monday
const monday = "2024-03-04"

func testWorkers() []model.Worker {
	return []model.Worker{
		{
			ID:           "w2",
			DisplayName:  "Bea",
			Team:         "team-A",
			Capabilities: []model.Capability{{ServiceCode: "DIO", Quota: intPtr(1)}, {ServiceCode: "ECH"}},
			TargetShifts: 4,
			Unavailability: map[model.Weekday][]model.Timeblock{
				model.Monday: {model.TimeblockEvening},
			},
		},
		{
			ID:           "w1",
			DisplayName:  "Al",
			Team:         model.TeamAny,
			Capabilities: []model.Capability{{ServiceCode: "DIO", Quota: intPtr(2)}},
			TargetShifts: 2,
			MaxShifts:    intPtr(1),
		},
	}
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(testWorkers(), []model.BlackoutSlot{
		{WorkerID: "w1", Date: monday, Timeblock: model.TimeblockMidday},
	})
	require.NoError(t, err)
	return tracker
}

func TestNewTracker_DuplicateWorker(t *testing.T) {
	workers := append(testWorkers(), model.Worker{ID: "w1"})

	_, err := NewTracker(workers, nil)

	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
}

func TestNewTracker_BlackoutForUnknownWorker(t *testing.T) {
	_, err := NewTracker(testWorkers(), []model.BlackoutSlot{{WorkerID: "ghost", Date: monday, Timeblock: model.TimeblockMorning}})

	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
}

func TestWorkerIDs_Sorted(t *testing.T) {
	tracker := newTestTracker(t)

	assert.Equal(t, []string{"w1", "w2"}, tracker.WorkerIDs())
}

func TestIsEligible(t *testing.T) {
	tracker := newTestTracker(t)

	assert.True(t, tracker.IsEligible("w2", "DIO"))
	assert.True(t, tracker.IsEligible("w2", "ECH"), "unbounded capability is eligible")
	assert.False(t, tracker.IsEligible("w1", "ECH"), "no capability")
	assert.False(t, tracker.IsEligible("ghost", "DIO"))
}

func TestIsEligible_FalseOnceQuotaConsumed(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Reserve("w2", monday, model.TimeblockMorning, "DIO")
	require.NoError(t, err)

	assert.False(t, tracker.IsEligible("w2", "DIO"))
	assert.Equal(t, 0, tracker.RemainingQuota("w2", "DIO"))
	assert.Equal(t, Unbounded, tracker.RemainingQuota("w2", "ECH"))
}

func TestIsEligible_FalseAtShiftCeiling(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Reserve("w1", monday, model.TimeblockMorning, "DIO")
	require.NoError(t, err)

	assert.Equal(t, 1, tracker.RemainingQuota("w1", "DIO"))
	assert.True(t, tracker.AtCeiling("w1"))
	assert.False(t, tracker.IsEligible("w1", "DIO"))
}

func TestIsAvailable(t *testing.T) {
	tracker := newTestTracker(t)

	assert.True(t, tracker.IsAvailable("w1", monday, model.TimeblockMorning))
	assert.False(t, tracker.IsAvailable("w1", monday, model.TimeblockMidday), "blackout")
	assert.False(t, tracker.IsAvailable("w2", monday, model.TimeblockEvening), "weekly pattern")
	assert.True(t, tracker.IsAvailable("w2", "2024-03-05", model.TimeblockEvening), "tuesday is free")
}

func TestIsAvailable_FalseWhenOccupiedOrBlocked(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Reserve("w2", monday, model.TimeblockMorning, "ECH")
	require.NoError(t, err)
	added := tracker.Block(model.BlockedSlot{WorkerID: "w2", Date: "2024-03-05", Timeblock: model.TimeblockMorning, Reason: "pairing"})

	assert.True(t, added)
	assert.False(t, tracker.IsAvailable("w2", monday, model.TimeblockMorning))
	assert.False(t, tracker.IsAvailable("w2", "2024-03-05", model.TimeblockMorning))
}

func TestIsStructurallyBlocked(t *testing.T) {
	tracker := newTestTracker(t)

	assert.True(t, tracker.IsStructurallyBlocked("w2", monday, model.TimeblockEvening))
	assert.False(t, tracker.IsStructurallyBlocked("w2", monday, model.TimeblockMorning))
	// Memoized answer stays the same
	assert.True(t, tracker.IsStructurallyBlocked("w2", monday, model.TimeblockEvening))
}

func TestReserve_DoubleReservationIsInvariantViolation(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Reserve("w2", monday, model.TimeblockMorning, "ECH")
	require.NoError(t, err)

	_, err = tracker.Reserve("w2", monday, model.TimeblockMorning, "DIO")

	require.Error(t, err)
	assert.True(t, model.IsInvariantViolation(err))
	assert.Contains(t, err.Error(), "double reservation")
}

func TestReserve_IneligibleIsInvariantViolation(t *testing.T) {
	tracker := newTestTracker(t)

	_, err := tracker.Reserve("w1", monday, model.TimeblockMorning, "ECH")

	require.Error(t, err)
	assert.True(t, model.IsInvariantViolation(err))
}

func TestReserve_RecordsAssignment(t *testing.T) {
	tracker := newTestTracker(t)

	a, err := tracker.Reserve("w2", monday, model.TimeblockMorning, "DIO")
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, a.Status)
	assert.Equal(t, model.SourceGreedy, a.Source)
	assert.Equal(t, 1, tracker.AssignedShifts("w2"))
	assert.Equal(t, 1, tracker.AssignedCount("w2", "DIO"))
	occupant, ok := tracker.Occupant("w2", monday, model.TimeblockMorning)
	require.True(t, ok)
	assert.Equal(t, a, occupant)
}

func TestPreload_ConsumesQuotaWithoutCapabilityCheck(t *testing.T) {
	tracker := newTestTracker(t)

	err := tracker.Preload(model.Assignment{WorkerID: "w1", Date: monday, Timeblock: model.TimeblockMorning, ServiceCode: "OSP", Status: model.StatusActive})
	require.NoError(t, err)

	assert.Equal(t, 1, tracker.AssignedShifts("w1"))
	assert.False(t, tracker.IsAvailable("w1", monday, model.TimeblockMorning))
}

func TestPreload_DoubleBookingIsDataError(t *testing.T) {
	tracker := newTestTracker(t)
	a := model.Assignment{WorkerID: "w2", Date: monday, Timeblock: model.TimeblockMorning, ServiceCode: "ECH", Status: model.StatusActive}

	require.NoError(t, tracker.Preload(a))
	err := tracker.Preload(a)

	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
}

func TestPreload_QuotaExceededIsDataError(t *testing.T) {
	tracker := newTestTracker(t)

	require.NoError(t, tracker.Preload(model.Assignment{WorkerID: "w2", Date: monday, Timeblock: model.TimeblockMorning, ServiceCode: "DIO", Status: model.StatusActive}))
	err := tracker.Preload(model.Assignment{WorkerID: "w2", Date: "2024-03-05", Timeblock: model.TimeblockMorning, ServiceCode: "DIO", Status: model.StatusActive})

	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
}

func TestBlock_FirstBlockWins(t *testing.T) {
	tracker := newTestTracker(t)

	first := model.BlockedSlot{WorkerID: "w1", Date: monday, Timeblock: model.TimeblockMorning, Reason: "first"}
	second := model.BlockedSlot{WorkerID: "w1", Date: monday, Timeblock: model.TimeblockMorning, Reason: "second"}

	assert.True(t, tracker.Block(first))
	assert.False(t, tracker.Block(second))

	b, ok := tracker.Blocked("w1", monday, model.TimeblockMorning)
	require.True(t, ok)
	assert.Equal(t, "first", b.Reason)
}

func TestSnapshot_IsACopy(t *testing.T) {
	tracker := newTestTracker(t)
	_, err := tracker.Reserve("w2", monday, model.TimeblockMorning, "DIO")
	require.NoError(t, err)

	snap := tracker.Snapshot()
	_, err = tracker.Reserve("w2", monday, model.TimeblockMidday, "ECH")
	require.NoError(t, err)

	assert.Len(t, snap.Assignments, 1)
	require.Len(t, snap.Workers, 2)
	assert.Equal(t, "w1", snap.Workers[0].ID)
	assert.True(t, snap.Blackouts[model.WorkerSlotKey{WorkerID: "w1", Date: monday, Timeblock: model.TimeblockMidday}])
}

func TestQuotaRatio(t *testing.T) {
	tracker := newTestTracker(t)

	assert.Equal(t, 1.0, tracker.QuotaRatio("w1", "DIO"))
	assert.Equal(t, 1.0, tracker.QuotaRatio("w2", "ECH"))
	assert.Equal(t, 0.0, tracker.QuotaRatio("w1", "ECH"))

	_, err := tracker.Reserve("w1", monday, model.TimeblockMorning, "DIO")
	require.NoError(t, err)
	assert.Equal(t, 0.5, tracker.QuotaRatio("w1", "DIO"))
}

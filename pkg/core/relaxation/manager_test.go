package relaxation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

func TestDecide_Thresholds(t *testing.T) {
	m := NewManager(DefaultPolicy(), nil)

	tests := []struct {
		priority int
		coverage float64
		want     Decision
	}{
		{1, 79.9, Relaxed},
		{3, 80, Blocked},
		{4, 84.9, Relaxed},
		{6, 85, Blocked},
		{7, 100, Relaxed},
		{10, 0, Relaxed},
	}
	for _, tt := range tests {
		got, err := m.Decide(Constraint{Name: "c", Priority: tt.priority}, tt.coverage)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "priority %d at %.1f%%", tt.priority, tt.coverage)
	}
}

func TestDecide_HardIsNeverRelaxed(t *testing.T) {
	m := NewManager(DefaultPolicy(), nil)

	got, err := m.Decide(Constraint{Name: "capability", Priority: 10, Hard: true}, 0)

	require.NoError(t, err)
	assert.Equal(t, Blocked, got)
}

func TestDecide_PriorityOutOfRangeIsDataError(t *testing.T) {
	m := NewManager(DefaultPolicy(), nil)

	_, err := m.Decide(Constraint{Name: "c", Priority: 11}, 50)
	require.Error(t, err)
	assert.True(t, model.IsDataError(err))

	_, err = CategoryOf(0)
	assert.Error(t, err)
}

func TestDecide_LogsCoverage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewManager(DefaultPolicy(), zap.New(core))

	_, err := m.Decide(Constraint{Name: "consecutive_days", Priority: 2}, 72.5)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, 72.5, fields["coverage_percent"])
	assert.Equal(t, "RELAXED", fields["decision"])
}

func TestAcceptReport(t *testing.T) {
	m := NewManager(Policy{Priorities: map[validation.ViolationType]int{
		validation.TypeConsecutiveDays:    2,
		validation.TypeFairnessOverTarget: 8,
	}}, nil)
	report := validation.Report{
		Violations: []validation.Violation{
			{Type: validation.TypeConsecutiveDays, Severity: validation.SeverityWarning},
			{Type: validation.TypeFairnessOverTarget, Severity: validation.SeverityWarning},
			{Type: validation.TypeFairnessOverTarget, Severity: validation.SeverityWarning},
			{Type: validation.TypeOverstaffed, Severity: validation.SeverityInfo},
		},
		WarningCount: 3,
		InfoCount:    1,
	}

	low, err := m.AcceptReport(report, 70)
	require.NoError(t, err)
	assert.True(t, low.Accepted)
	assert.Len(t, low.Outcomes, 2, "one decision per warning type")

	high, err := m.AcceptReport(report, 95)
	require.NoError(t, err)
	assert.False(t, high.Accepted)
	assert.Contains(t, high.Reason, "consecutive_days")
}

func TestAcceptReport_CriticalRejects(t *testing.T) {
	m := NewManager(DefaultPolicy(), nil)
	report := validation.Report{
		Violations:    []validation.Violation{{Type: validation.TypeCapability, Severity: validation.SeverityCritical}},
		CriticalCount: 1,
	}

	got, err := m.AcceptReport(report, 10)

	require.NoError(t, err)
	assert.False(t, got.Accepted)
	require.Len(t, got.Outcomes, 1)
	assert.Equal(t, Blocked, got.Outcomes[0].Decision)
	assert.True(t, got.Outcomes[0].Constraint.Hard)
}

func TestAcceptReport_CleanReport(t *testing.T) {
	got, err := NewManager(DefaultPolicy(), nil).AcceptReport(validation.Report{Valid: true}, 100)

	require.NoError(t, err)
	assert.True(t, got.Accepted)
	assert.Empty(t, got.Outcomes)
}

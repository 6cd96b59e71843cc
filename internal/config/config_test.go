package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster_config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_DefaultConfig(t *testing.T) {
	err := Validate(Default())
	assert.NoError(t, err)
}

func TestValidate_InvalidStrategy(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Strategy = "random"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Strategy")
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.PartialCoverageThreshold = 120

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_ZeroThresholdsAreRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{"partial coverage", func(cfg *Config) { cfg.PartialCoverageThreshold = 0 }, "PartialCoverageThreshold"},
		{"critical coverage", func(cfg *Config) { cfg.Relaxation.CriticalCoverageThreshold = 0 }, "CriticalCoverageThreshold"},
		{"important coverage", func(cfg *Config) { cfg.Relaxation.ImportantCoverageThreshold = 0 }, "ImportantCoverageThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFromPath_ZeroThresholdIsRejected(t *testing.T) {
	path := writeConfig(t, "partialCoverageThreshold: 0\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestValidate_DuplicateTimeblocks(t *testing.T) {
	cfg := Default()
	cfg.Timeblocks = []string{"morning", "morning"}

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_SystemOrderUnknownTimeblock(t *testing.T) {
	cfg := Default()
	cfg.SystemServiceOrder = map[string][]string{"night": {"OPEN"}}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "night")
}

func TestValidate_UnknownPriorityType(t *testing.T) {
	cfg := Default()
	cfg.Relaxation.Priorities = map[string]int{"capability": 2}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability")
}

func TestValidate_PriorityOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Relaxation.Priorities = map[string]int{"consecutive_days": 11}

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_ImportantBelowCritical(t *testing.T) {
	cfg := Default()
	cfg.Relaxation.CriticalCoverageThreshold = 90
	cfg.Relaxation.ImportantCoverageThreshold = 85

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestLoadFromPath_KeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `
partialCoverageThreshold: 70
solveTimeout: 5s
scoring:
  strategy: weighted
  weighted:
    gap: 2
relaxation:
  priorities:
    consecutive_days: 6
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.PartialCoverageThreshold)
	assert.Equal(t, 5*time.Second, cfg.SolveTimeout)
	assert.Equal(t, "weighted", cfg.Scoring.Strategy)
	assert.Equal(t, 2.0, cfg.Scoring.Weighted.Gap)
	assert.Equal(t, 0.5, cfg.Scoring.Weighted.Skill)
	assert.Equal(t, []string{"morning", "midday", "evening"}, cfg.Timeblocks)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 6, cfg.RelaxationPolicy().Priorities[validation.TypeConsecutiveDays])
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	t.Setenv("ROSTER_DATABASE_URL", "postgres://env/roster")
	t.Setenv("ROSTER_REDIS_ADDR", "localhost:6390")
	t.Setenv("ROSTER_HTTP_ADDR", ":9090")
	path := writeConfig(t, `
database:
  url: postgres://file/roster
http:
  addr: ":8081"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/roster", cfg.Database.URL)
	assert.Equal(t, "localhost:6390", cfg.Redis.Addr)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "timeblocks: [morning")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSolverOptions(t *testing.T) {
	cfg := Default()
	cfg.Timeblocks = []string{"am", "pm"}
	cfg.SystemServiceOrder = map[string][]string{"am": {"SETUP", "OPEN"}}
	cfg.AllowUnknownServices = true
	cfg.Scoring.SoftPairingPenalty = 2.5

	opts, err := cfg.SolverOptions()
	require.NoError(t, err)

	assert.Equal(t, []model.Timeblock{"am", "pm"}, opts.Timeblocks)
	assert.Equal(t, []string{"SETUP", "OPEN"}, opts.SystemOrder["am"])
	assert.True(t, opts.AllowUnknownServices)
	assert.Equal(t, 2.5, opts.SoftPairingPenalty)
	assert.Equal(t, solver.ScorerGap, opts.Scorer.Name())
}

func TestValidationConstraints(t *testing.T) {
	cfg := Default()
	cfg.Validation.MaxConsecutiveDays = 4

	c := cfg.ValidationConstraints()

	assert.Equal(t, 4, c.MaxConsecutiveDays)
	assert.Equal(t, validation.DefaultConstraints().MinRestDays, c.MinRestDays)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := findConfigFile("roster_config.nowhere.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

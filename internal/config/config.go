package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/relaxation"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ROSTER_"

// WeightedScoringConfig holds the weights of the weighted scoring strategy
type WeightedScoringConfig struct {
	Gap          float64 `yaml:"gap"`
	Skill        float64 `yaml:"skill"`
	Availability float64 `yaml:"availability"`
}

// ScoringConfig selects how candidates are ranked
type ScoringConfig struct {
	Strategy             string                `yaml:"strategy" validate:"omitempty,oneof=gap weighted"`
	SoftPairingPenalty   float64               `yaml:"softPairingPenalty" validate:"gte=0"`
	CapabilityMatchBonus float64               `yaml:"capabilityMatchBonus" validate:"gte=0"`
	Weighted             WeightedScoringConfig `yaml:"weighted"`
}

// ValidationConfig holds the soft limits checked on every solution
type ValidationConfig struct {
	MaxConsecutiveDays int `yaml:"maxConsecutiveDays" validate:"gte=0"`
	MinRestDays        int `yaml:"minRestDays" validate:"gte=0"`
	FairnessTolerance  int `yaml:"fairnessTolerance" validate:"gte=0"`
}

// RelaxationConfig decides when soft violations are accepted
type RelaxationConfig struct {
	// Thresholds are strictly positive percentages
	CriticalCoverageThreshold  float64 `yaml:"criticalCoverageThreshold" validate:"gt=0,lte=100"`
	ImportantCoverageThreshold float64 `yaml:"importantCoverageThreshold" validate:"gt=0,lte=100"`

	// Priorities maps violation types (e.g. consecutive_days) to a priority from 1 to 10
	Priorities map[string]int `yaml:"priorities,omitempty" validate:"dive,min=1,max=10"`

	// Force persists solutions even when relaxation rejects them
	Force bool `yaml:"force"`
}

// DatabaseConfig points at the Postgres roster store
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// RedisConfig configures the optional solve result cache (empty addr disables it)
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	// Timeblocks in chronological order
	Timeblocks []string `yaml:"timeblocks" validate:"required,unique,dive,required"`

	// SystemServiceOrder is the fixed order of system service codes per timeblock
	SystemServiceOrder map[string][]string `yaml:"systemServiceOrder,omitempty"`

	PartialCoverageThreshold float64       `yaml:"partialCoverageThreshold" validate:"gt=0,lte=100"`
	AllowUnknownServices     bool          `yaml:"allowUnknownServices"`
	SolveTimeout             time.Duration `yaml:"solveTimeout" validate:"gte=0"`

	Scoring    ScoringConfig    `yaml:"scoring"`
	Validation ValidationConfig `yaml:"validation"`
	Relaxation RelaxationConfig `yaml:"relaxation"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	HTTP       HTTPConfig       `yaml:"http"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used for omitted fields
func Default() *Config {
	constraints := validation.DefaultConstraints()
	policy := relaxation.DefaultPolicy()
	timeblocks := make([]string, len(model.DefaultTimeblocks))
	for i, tb := range model.DefaultTimeblocks {
		timeblocks[i] = string(tb)
	}

	return &Config{
		Timeblocks:               timeblocks,
		PartialCoverageThreshold: solver.DefaultPartialCoverageThreshold,
		SolveTimeout:             30 * time.Second,
		Scoring: ScoringConfig{
			Strategy:           solver.ScorerGap,
			SoftPairingPenalty: 1.0,
			Weighted:           WeightedScoringConfig{Gap: 1, Skill: 0.5, Availability: 0.5},
		},
		Validation: ValidationConfig{
			MaxConsecutiveDays: constraints.MaxConsecutiveDays,
			MinRestDays:        constraints.MinRestDays,
			FairnessTolerance:  constraints.FairnessTolerance,
		},
		Relaxation: RelaxationConfig{
			CriticalCoverageThreshold:  policy.CriticalCoverageThreshold,
			ImportantCoverageThreshold: policy.ImportantCoverageThreshold,
		},
		Redis: RedisConfig{TTL: time.Hour},
		HTTP:  HTTPConfig{Addr: ":8080"},
	}
}

// LoadWithEnv loads the configuration for an environment from roster_config.<env>.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func LoadWithEnv(environment string) (*Config, error) {
	configPath, err := findConfigFile(fmt.Sprintf("roster_config.%s.yaml", environment))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads, overlays environment variables onto and validates the configuration
// from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides connection settings from ROSTER_* environment variables
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// Validate validates the configuration struct and cross-field references
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// System order may only reference configured timeblocks
	for tb := range cfg.SystemServiceOrder {
		if !slices.Contains(cfg.Timeblocks, tb) {
			return fmt.Errorf("systemServiceOrder references unknown timeblock %q", tb)
		}
	}

	// Priorities may only reference known violation types
	for name := range cfg.Relaxation.Priorities {
		if !slices.Contains(knownViolationTypes, validation.ViolationType(name)) {
			return fmt.Errorf("relaxation priority for unknown violation type %q", name)
		}
	}

	if cfg.Relaxation.ImportantCoverageThreshold < cfg.Relaxation.CriticalCoverageThreshold {
		return fmt.Errorf("importantCoverageThreshold (%.1f) must not be below criticalCoverageThreshold (%.1f)",
			cfg.Relaxation.ImportantCoverageThreshold, cfg.Relaxation.CriticalCoverageThreshold)
	}

	return nil
}

// Only WARNING-level types are subject to relaxation
var knownViolationTypes = []validation.ViolationType{
	validation.TypeTeamMismatch,
	validation.TypeOutsidePeriod,
	validation.TypeConsecutiveDays,
	validation.TypeInsufficientRest,
	validation.TypeUnderstaffed,
	validation.TypeFairnessOverTarget,
}

// SolverOptions converts the configuration into engine options
func (c *Config) SolverOptions() (solver.Options, error) {
	scorer, err := solver.NewScorer(solver.ScoringOptions{
		Strategy:             c.Scoring.Strategy,
		CapabilityMatchBonus: c.Scoring.CapabilityMatchBonus,
		WeightGap:            c.Scoring.Weighted.Gap,
		WeightSkill:          c.Scoring.Weighted.Skill,
		WeightAvailability:   c.Scoring.Weighted.Availability,
	})
	if err != nil {
		return solver.Options{}, fmt.Errorf("failed to build scorer: %w", err)
	}

	opts := solver.Options{
		Timeblocks:               make([]model.Timeblock, len(c.Timeblocks)),
		SystemOrder:              make(map[model.Timeblock][]string, len(c.SystemServiceOrder)),
		PartialCoverageThreshold: c.PartialCoverageThreshold,
		SoftPairingPenalty:       c.Scoring.SoftPairingPenalty,
		AllowUnknownServices:     c.AllowUnknownServices,
		Scorer:                   scorer,
	}
	for i, tb := range c.Timeblocks {
		opts.Timeblocks[i] = model.Timeblock(tb)
	}
	for tb, codes := range c.SystemServiceOrder {
		opts.SystemOrder[model.Timeblock(tb)] = slices.Clone(codes)
	}
	return opts, nil
}

// ValidationConstraints converts the configuration into validator constraints
func (c *Config) ValidationConstraints() validation.Constraints {
	return validation.Constraints{
		MaxConsecutiveDays: c.Validation.MaxConsecutiveDays,
		MinRestDays:        c.Validation.MinRestDays,
		FairnessTolerance:  c.Validation.FairnessTolerance,
	}
}

// RelaxationPolicy converts the configuration into a relaxation policy.
// Configured priorities override the defaults per violation type.
func (c *Config) RelaxationPolicy() relaxation.Policy {
	policy := relaxation.DefaultPolicy()
	policy.CriticalCoverageThreshold = c.Relaxation.CriticalCoverageThreshold
	policy.ImportantCoverageThreshold = c.Relaxation.ImportantCoverageThreshold
	for name, priority := range c.Relaxation.Priorities {
		policy.Priorities[validation.ViolationType(name)] = priority
	}
	return policy
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}

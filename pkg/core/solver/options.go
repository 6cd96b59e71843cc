package solver

import "github.com/jakechorley/duty-roster/pkg/core/model"

// DefaultPartialCoverageThreshold is the coverage percent separating partial from failed runs
const DefaultPartialCoverageThreshold = 80.0

// Options configures an Engine
type Options struct {
	// Timeblocks in chronological order (defaults to model.DefaultTimeblocks)
	Timeblocks []model.Timeblock `json:"timeblocks"`

	// SystemOrder is the fixed sub-order of system service codes per timeblock
	SystemOrder map[model.Timeblock][]string `json:"systemOrder,omitempty"`

	// PartialCoverageThreshold is the minimum coverage percent of a partial run
	PartialCoverageThreshold float64 `json:"partialCoverageThreshold"`

	// SoftPairingPenalty applies to soft rules without an explicit penalty
	SoftPairingPenalty float64 `json:"softPairingPenalty"`

	// AllowUnknownServices lets requirements reference codes missing from the catalogue.
	// They are processed as tier 2 / ANY and logged as a data-quality warning.
	AllowUnknownServices bool `json:"allowUnknownServices"`

	// Scorer encodes as its parameters; the strategy name is part of the engine name
	Scorer Scorer `json:"scorer"`
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Timeblocks:               model.DefaultTimeblocks,
		PartialCoverageThreshold: DefaultPartialCoverageThreshold,
		Scorer:                   GapScorer{},
	}
}

func (o Options) withDefaults() Options {
	if len(o.Timeblocks) == 0 {
		o.Timeblocks = model.DefaultTimeblocks
	}
	if o.PartialCoverageThreshold == 0 {
		o.PartialCoverageThreshold = DefaultPartialCoverageThreshold
	}
	if o.Scorer == nil {
		o.Scorer = GapScorer{}
	}
	return o
}

package solver

import "fmt"

// Candidate is an eligible, available, team-matched worker for one position
type Candidate struct {
	WorkerID string

	// Gap is targetShifts - currentAssignedShifts
	Gap int

	// PairingPenalty is the sum of soft pairing penalties (<= 0)
	PairingPenalty float64

	// CapabilityCount is the number of services the worker is trained for
	CapabilityCount int

	// QuotaRatio is remaining/configured quota for the requirement's service (1 if unbounded)
	QuotaRatio float64
}

// Scorer ranks candidates; the highest score wins and ties go to the lowest worker id
type Scorer interface {
	Score(c Candidate) float64
	Name() string
}

const (
	ScorerGap      = "gap"
	ScorerWeighted = "weighted"
)

// GapScorer is the canonical fairness score: workers furthest below target first
type GapScorer struct {
	// CapabilityMatchBonus favours specialists, divided by the candidate's capability count
	CapabilityMatchBonus float64
}

func (s GapScorer) Name() string { return ScorerGap }

func (s GapScorer) Score(c Candidate) float64 {
	score := float64(c.Gap) + c.PairingPenalty
	if s.CapabilityMatchBonus != 0 && c.CapabilityCount > 0 {
		score += s.CapabilityMatchBonus / float64(c.CapabilityCount)
	}
	return score
}

// WeightedScorer blends fairness gap, specialisation and remaining quota
type WeightedScorer struct {
	Gap          float64
	Skill        float64
	Availability float64
}

func (s WeightedScorer) Name() string { return ScorerWeighted }

func (s WeightedScorer) Score(c Candidate) float64 {
	score := s.Gap*float64(c.Gap) + s.Availability*c.QuotaRatio + c.PairingPenalty
	if c.CapabilityCount > 0 {
		score += s.Skill / float64(c.CapabilityCount)
	}
	return score
}

// ScoringOptions selects and parameterizes a Scorer
type ScoringOptions struct {
	Strategy             string
	CapabilityMatchBonus float64
	WeightGap            float64
	WeightSkill          float64
	WeightAvailability   float64
}

// NewScorer builds the scorer named by the options (empty strategy means gap)
func NewScorer(opts ScoringOptions) (Scorer, error) {
	switch opts.Strategy {
	case "", ScorerGap:
		return GapScorer{CapabilityMatchBonus: opts.CapabilityMatchBonus}, nil
	case ScorerWeighted:
		return WeightedScorer{Gap: opts.WeightGap, Skill: opts.WeightSkill, Availability: opts.WeightAvailability}, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", opts.Strategy)
	}
}

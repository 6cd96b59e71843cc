// Package queue orders staffing requirements for the greedy engine.
package queue

import (
	"cmp"
	"slices"

	"github.com/jakechorley/duty-roster/pkg/core/model"
)

// Tier is the priority class of a requirement within its timeblock
type Tier int

const (
	// TierSystem holds system services, ordered by the per-timeblock sub-order table
	TierSystem Tier = 0

	// TierOpen holds ordinary services open to any team
	TierOpen Tier = 1

	// TierTeam holds ordinary services restricted to a specific team
	TierTeam Tier = 2
)

func (t Tier) String() string {
	switch t {
	case TierSystem:
		return "system"
	case TierOpen:
		return "open"
	case TierTeam:
		return "team"
	default:
		return "unknown"
	}
}

// Item is a sorted requirement annotated with the metadata that decided its position
type Item struct {
	Requirement model.Requirement
	Tier        Tier
	Team        string

	// MissingMetadata is true when the service code was not found in the catalogue
	// and the item fell back to tier 2 / ANY
	MissingMetadata bool
}

// Queue sorts requirements with the 3-layer key: (date, timeblock), tier, service code
type Queue struct {
	services      map[string]model.ServiceType
	timeblockRank map[model.Timeblock]int
	systemOrder   map[model.Timeblock]map[string]int
}

// New creates a Queue for a service catalogue.
// timeblocks gives the chronological order of timeblocks within a day and systemOrder
// the fixed sub-order of system service codes per timeblock.
func New(services []model.ServiceType, timeblocks []model.Timeblock, systemOrder map[model.Timeblock][]string) *Queue {
	q := &Queue{
		services:      make(map[string]model.ServiceType, len(services)),
		timeblockRank: make(map[model.Timeblock]int, len(timeblocks)),
		systemOrder:   make(map[model.Timeblock]map[string]int, len(systemOrder)),
	}
	for _, s := range services {
		q.services[s.Code] = s
	}
	if len(timeblocks) == 0 {
		timeblocks = model.DefaultTimeblocks
	}
	for i, tb := range timeblocks {
		if _, exists := q.timeblockRank[tb]; !exists {
			q.timeblockRank[tb] = i
		}
	}
	for tb, codes := range systemOrder {
		ranks := make(map[string]int, len(codes))
		for i, code := range codes {
			if _, exists := ranks[code]; !exists {
				ranks[code] = i
			}
		}
		q.systemOrder[tb] = ranks
	}
	return q
}

// Classify returns the tier and effective team scope of a requirement
func (q *Queue) Classify(r model.Requirement) Item {
	item := Item{Requirement: r}

	service, ok := q.services[r.ServiceCode]
	if !ok {
		item.Tier = TierTeam
		item.Team = model.NormalizeTeam(r.Team)
		item.MissingMetadata = true
		return item
	}

	// The requirement's own scope wins over the service's affinity
	item.Team = model.NormalizeTeam(service.Team)
	if model.NormalizeTeam(r.Team) != model.TeamAny {
		item.Team = model.NormalizeTeam(r.Team)
	}

	switch {
	case service.System:
		item.Tier = TierSystem
	case item.Team == model.TeamAny:
		item.Tier = TierOpen
	default:
		item.Tier = TierTeam
	}
	return item
}

// Sort returns the requirements in processing order. The input slice is not modified.
func (q *Queue) Sort(requirements []model.Requirement) []model.Requirement {
	items := q.Items(requirements)
	sorted := make([]model.Requirement, len(items))
	for i, item := range items {
		sorted[i] = item.Requirement
	}
	return sorted
}

// Items classifies and sorts the requirements, keeping the classification
func (q *Queue) Items(requirements []model.Requirement) []Item {
	items := make([]Item, len(requirements))
	for i, r := range requirements {
		items[i] = q.Classify(r)
	}
	slices.SortStableFunc(items, q.compare)
	return items
}

// TimeblockRank returns the chronological rank of a timeblock.
// Unknown timeblocks rank after every configured one.
func (q *Queue) TimeblockRank(tb model.Timeblock) int {
	if rank, ok := q.timeblockRank[tb]; ok {
		return rank
	}
	return len(q.timeblockRank)
}

// KnowsTimeblock reports whether tb is one of the configured timeblocks
func (q *Queue) KnowsTimeblock(tb model.Timeblock) bool {
	_, ok := q.timeblockRank[tb]
	return ok
}

// CompareSlots orders (date, timeblock) pairs chronologically
func (q *Queue) CompareSlots(a, b model.SlotKey) int {
	if c := cmp.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(q.TimeblockRank(a.Timeblock), q.TimeblockRank(b.Timeblock)); c != 0 {
		return c
	}
	return cmp.Compare(a.Timeblock, b.Timeblock)
}

func (q *Queue) systemRank(tb model.Timeblock, code string) int {
	ranks := q.systemOrder[tb]
	if rank, ok := ranks[code]; ok {
		return rank
	}
	// Unlisted system codes go last within tier 0
	return len(ranks)
}

func (q *Queue) compare(a, b Item) int {
	// Layer 1: cluster by timeblock, chronologically
	if c := q.CompareSlots(a.Requirement.Slot(), b.Requirement.Slot()); c != 0 {
		return c
	}

	// Layer 2: tier, never interspersed
	if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
		return c
	}
	if a.Tier == TierSystem {
		tb := a.Requirement.Timeblock
		if c := cmp.Compare(q.systemRank(tb, a.Requirement.ServiceCode), q.systemRank(tb, b.Requirement.ServiceCode)); c != 0 {
			return c
		}
	}

	// Layer 3: alphabetical service code, then team so the order is total
	if c := cmp.Compare(a.Requirement.ServiceCode, b.Requirement.ServiceCode); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Team, b.Team); c != 0 {
		return c
	}
	return cmp.Compare(a.Requirement.Count, b.Requirement.Count)
}

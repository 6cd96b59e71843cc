package model

import "strings"

// TeamAny is the unrestricted team scope. Requirements scoped to it accept any worker,
// and workers affiliated with it float across every team.
const TeamAny = "ANY"

// Timeblock is a named segment of a day used as the atomic scheduling unit
type Timeblock string

// Default timeblocks, in chronological order
const (
	TimeblockMorning Timeblock = "morning"
	TimeblockMidday  Timeblock = "midday"
	TimeblockEvening Timeblock = "evening"
)

// DefaultTimeblocks is the chronological order used when none is configured
var DefaultTimeblocks = []Timeblock{TimeblockMorning, TimeblockMidday, TimeblockEvening}

// AssignmentStatus is the lifecycle state of an assignment
type AssignmentStatus string

const (
	StatusActive  AssignmentStatus = "active"
	StatusBlocked AssignmentStatus = "blocked"
	StatusOpen    AssignmentStatus = "open"
)

// AssignmentSource records who produced an assignment
type AssignmentSource string

const (
	SourcePrePlanned AssignmentSource = "pre-planned"
	SourceGreedy     AssignmentSource = "greedy"
)

// Capability is a service a worker can perform with an optional quota for the period
type Capability struct {
	ServiceCode string `json:"serviceCode" yaml:"service"`

	// Quota is the maximum number of assignments of this service (nil = unbounded)
	Quota *int `json:"quota,omitempty" yaml:"quota,omitempty"`
}

// Worker is a person who can be rostered
type Worker struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Team        string `json:"team"`

	// Capabilities lists the services this worker is trained for
	Capabilities []Capability `json:"capabilities"`

	// TargetShifts is the desired total number of shifts in the period (fairness target)
	TargetShifts int `json:"targetShifts"`

	// MaxShifts is an optional ceiling on total shifts across all services
	MaxShifts *int `json:"maxShifts,omitempty"`

	// Unavailability is the recurring structural pattern: weekday -> blocked timeblocks
	Unavailability map[Weekday][]Timeblock `json:"unavailability,omitempty"`
}

// Capability returns the worker's capability entry for a service code
func (w Worker) Capability(serviceCode string) (Capability, bool) {
	for _, c := range w.Capabilities {
		if c.ServiceCode == serviceCode {
			return c, true
		}
	}
	return Capability{}, false
}

// IsStructurallyUnavailable reports whether the worker's weekly pattern blocks the slot
func (w Worker) IsStructurallyUnavailable(date string, timeblock Timeblock) bool {
	if len(w.Unavailability) == 0 {
		return false
	}
	weekday, err := WeekdayOf(date)
	if err != nil {
		return false
	}
	for _, tb := range w.Unavailability[weekday] {
		if tb == timeblock {
			return true
		}
	}
	return false
}

// ServiceType describes a kind of duty that requirements ask for
type ServiceType struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	// Team is ANY or the specific team the service is restricted to
	Team string `json:"team"`

	// System services are processed first within a timeblock
	System bool `json:"system"`
}

// Requirement asks for Count workers of a service in one timeblock of one date
type Requirement struct {
	Date        string    `json:"date"`
	Timeblock   Timeblock `json:"timeblock"`
	ServiceCode string    `json:"serviceCode"`
	Team        string    `json:"team,omitempty"`
	Count       int       `json:"count"`
}

// Slot returns the (date, timeblock) the requirement belongs to
func (r Requirement) Slot() SlotKey {
	return SlotKey{Date: r.Date, Timeblock: r.Timeblock}
}

// Assignment is a worker placed on a service in one timeblock of one date
type Assignment struct {
	WorkerID    string           `json:"workerId"`
	Date        string           `json:"date"`
	Timeblock   Timeblock        `json:"timeblock"`
	ServiceCode string           `json:"serviceCode"`
	Status      AssignmentStatus `json:"status"`
	Source      AssignmentSource `json:"source"`
}

// IsActive returns true if the assignment occupies the worker's slot
func (a Assignment) IsActive() bool {
	return a.Status == StatusActive
}

// WorkerSlot returns the exclusivity key of the assignment
func (a Assignment) WorkerSlot() WorkerSlotKey {
	return WorkerSlotKey{WorkerID: a.WorkerID, Date: a.Date, Timeblock: a.Timeblock}
}

// BlackoutSlot is an externally forced unavailability for a worker
type BlackoutSlot struct {
	WorkerID  string    `json:"workerId"`
	Date      string    `json:"date"`
	Timeblock Timeblock `json:"timeblock"`
}

// BlockedSlot is a derived unavailability created during a solve run
type BlockedSlot struct {
	WorkerID  string    `json:"workerId"`
	Date      string    `json:"date"`
	Timeblock Timeblock `json:"timeblock"`
	Reason    string    `json:"reason"`

	// Trigger is the assignment that caused the block
	Trigger Assignment `json:"trigger"`
}

// SlotKey identifies one timeblock of one date
type SlotKey struct {
	Date      string
	Timeblock Timeblock
}

// WorkerSlotKey identifies one timeblock of one date for one worker
type WorkerSlotKey struct {
	WorkerID  string
	Date      string
	Timeblock Timeblock
}

// ServiceSlotKey identifies one service in one timeblock of one date
type ServiceSlotKey struct {
	Date        string
	Timeblock   Timeblock
	ServiceCode string
}

// NormalizeTeam maps empty and any-case "any" team values onto TeamAny
func NormalizeTeam(team string) string {
	team = strings.TrimSpace(team)
	if team == "" || strings.EqualFold(team, TeamAny) {
		return TeamAny
	}
	return team
}

// TeamMatches reports whether a worker of workerTeam may serve a requirement scoped to
// requirementTeam
func TeamMatches(workerTeam, requirementTeam string) bool {
	workerTeam = NormalizeTeam(workerTeam)
	requirementTeam = NormalizeTeam(requirementTeam)
	if requirementTeam == TeamAny || workerTeam == TeamAny {
		return true
	}
	return strings.EqualFold(workerTeam, requirementTeam)
}

// Package rosterfile reads roster definitions and writes solutions as YAML files.
package rosterfile

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/pairing"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// CapabilityEntry is a trained service with an optional quota
type CapabilityEntry struct {
	Service string `yaml:"service" validate:"required"`
	Quota   *int   `yaml:"quota,omitempty" validate:"omitempty,gte=0"`
}

// WorkerEntry is one worker in a roster file
type WorkerEntry struct {
	ID           string            `yaml:"id" validate:"required"`
	Name         string            `yaml:"name,omitempty"`
	Team         string            `yaml:"team,omitempty"`
	Capabilities []CapabilityEntry `yaml:"capabilities" validate:"dive"`
	TargetShifts int               `yaml:"targetShifts" validate:"gte=0"`
	MaxShifts    *int              `yaml:"maxShifts,omitempty" validate:"omitempty,gte=0"`

	// Unavailability maps weekday names to blocked timeblocks
	Unavailability map[string][]string `yaml:"unavailability,omitempty"`
}

// ServiceEntry is one service type in a roster file
type ServiceEntry struct {
	ID     string `yaml:"id,omitempty"`
	Code   string `yaml:"code" validate:"required"`
	Team   string `yaml:"team,omitempty"`
	System bool   `yaml:"system,omitempty"`
}

// RequirementEntry asks for count workers of a service in one slot
type RequirementEntry struct {
	Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Timeblock string `yaml:"timeblock" validate:"required"`
	Service   string `yaml:"service" validate:"required"`
	Team      string `yaml:"team,omitempty"`
	Count     int    `yaml:"count" validate:"gte=0"`
}

// PairingRuleEntry is a hard or soft next-day pairing rule
type PairingRuleEntry struct {
	First       string  `yaml:"first" validate:"required"`
	Second      string  `yaml:"second" validate:"required"`
	Kind        string  `yaml:"kind" validate:"required,oneof=hard soft"`
	Description string  `yaml:"description,omitempty"`
	Penalty     float64 `yaml:"penalty,omitempty"`
}

// AssignmentEntry is a pre-planned or solved assignment
type AssignmentEntry struct {
	Worker    string `yaml:"worker" validate:"required"`
	Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Timeblock string `yaml:"timeblock" validate:"required"`
	Service   string `yaml:"service" validate:"required"`
	Status    string `yaml:"status,omitempty" validate:"omitempty,oneof=active blocked open"`
	Source    string `yaml:"source,omitempty"`
}

// BlackoutEntry is a one-off unavailability
type BlackoutEntry struct {
	Worker    string `yaml:"worker" validate:"required"`
	Date      string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Timeblock string `yaml:"timeblock" validate:"required"`
}

// RecurringBlackoutEntry blocks the listed timeblocks on every date matched by an RRULE
// (e.g. "FREQ=WEEKLY;INTERVAL=2;BYDAY=FR") within the roster period
type RecurringBlackoutEntry struct {
	Worker     string   `yaml:"worker" validate:"required"`
	RRule      string   `yaml:"rrule" validate:"required"`
	Timeblocks []string `yaml:"timeblocks" validate:"required,min=1,dive,required"`
}

// File is the on-disk roster definition
type File struct {
	RosterID    string `yaml:"rosterId"`
	PeriodStart string `yaml:"periodStart,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd   string `yaml:"periodEnd,omitempty" validate:"omitempty,datetime=2006-01-02"`

	Workers            []WorkerEntry            `yaml:"workers" validate:"dive"`
	Services           []ServiceEntry           `yaml:"services" validate:"dive"`
	Requirements       []RequirementEntry       `yaml:"requirements" validate:"dive"`
	PairingRules       []PairingRuleEntry       `yaml:"pairingRules,omitempty" validate:"dive"`
	Preplanned         []AssignmentEntry        `yaml:"preplanned,omitempty" validate:"dive"`
	Blackouts          []BlackoutEntry          `yaml:"blackouts,omitempty" validate:"dive"`
	RecurringBlackouts []RecurringBlackoutEntry `yaml:"recurringBlackouts,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads and validates a roster file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}

	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("roster file validation failed: %w", err)
	}

	// Validate rrule syntax for each recurring blackout
	for i, rb := range f.RecurringBlackouts {
		if _, err := rrule.StrToRRule(rb.RRule); err != nil {
			return nil, fmt.Errorf("invalid rrule in recurringBlackouts[%d]: %w", i, err)
		}
	}

	return &f, nil
}

// LoadInput reads a roster file and converts it into solver input
func LoadInput(path string) (solver.Input, error) {
	f, err := Load(path)
	if err != nil {
		return solver.Input{}, err
	}
	return f.ToInput()
}

// ToInput converts the file into solver input, expanding recurring blackouts
func (f *File) ToInput() (solver.Input, error) {
	in := solver.Input{
		RosterID:     f.RosterID,
		PeriodStart:  f.PeriodStart,
		PeriodEnd:    f.PeriodEnd,
		Workers:      make([]model.Worker, 0, len(f.Workers)),
		Services:     make([]model.ServiceType, 0, len(f.Services)),
		Requirements: make([]model.Requirement, 0, len(f.Requirements)),
	}

	for _, w := range f.Workers {
		worker, err := w.toWorker()
		if err != nil {
			return solver.Input{}, err
		}
		in.Workers = append(in.Workers, worker)
	}

	for _, s := range f.Services {
		in.Services = append(in.Services, model.ServiceType{ID: s.ID, Code: s.Code, Team: model.NormalizeTeam(s.Team), System: s.System})
	}

	for _, r := range f.Requirements {
		in.Requirements = append(in.Requirements, model.Requirement{
			Date:        r.Date,
			Timeblock:   model.Timeblock(r.Timeblock),
			ServiceCode: r.Service,
			Team:        r.Team,
			Count:       r.Count,
		})
	}

	for _, p := range f.PairingRules {
		in.PairingRules = append(in.PairingRules, pairing.Rule{
			First:       p.First,
			Second:      p.Second,
			Kind:        pairing.Kind(p.Kind),
			Description: p.Description,
			Penalty:     p.Penalty,
		})
	}

	for _, a := range f.Preplanned {
		in.Preplanned = append(in.Preplanned, a.toAssignment(model.SourcePrePlanned))
	}

	for _, b := range f.Blackouts {
		in.Blackouts = append(in.Blackouts, model.BlackoutSlot{WorkerID: b.Worker, Date: b.Date, Timeblock: model.Timeblock(b.Timeblock)})
	}

	recurring, err := f.expandRecurringBlackouts()
	if err != nil {
		return solver.Input{}, err
	}
	in.Blackouts = append(in.Blackouts, recurring...)

	return in, nil
}

func (w WorkerEntry) toWorker() (model.Worker, error) {
	worker := model.Worker{
		ID:           w.ID,
		DisplayName:  w.Name,
		Team:         model.NormalizeTeam(w.Team),
		Capabilities: make([]model.Capability, 0, len(w.Capabilities)),
		TargetShifts: w.TargetShifts,
		MaxShifts:    w.MaxShifts,
	}
	if worker.DisplayName == "" {
		worker.DisplayName = w.ID
	}
	for _, c := range w.Capabilities {
		worker.Capabilities = append(worker.Capabilities, model.Capability{ServiceCode: c.Service, Quota: c.Quota})
	}
	if len(w.Unavailability) > 0 {
		worker.Unavailability = make(map[model.Weekday][]model.Timeblock, len(w.Unavailability))
		for day, blocks := range w.Unavailability {
			weekday, err := model.ParseWeekday(day)
			if err != nil {
				return model.Worker{}, fmt.Errorf("worker %s: %w", w.ID, err)
			}
			for _, tb := range blocks {
				worker.Unavailability[weekday] = append(worker.Unavailability[weekday], model.Timeblock(tb))
			}
		}
	}
	return worker, nil
}

func (a AssignmentEntry) toAssignment(defaultSource model.AssignmentSource) model.Assignment {
	status := model.AssignmentStatus(a.Status)
	if status == "" {
		status = model.StatusActive
	}
	source := model.AssignmentSource(a.Source)
	if source == "" {
		source = defaultSource
	}
	return model.Assignment{
		WorkerID:    a.Worker,
		Date:        a.Date,
		Timeblock:   model.Timeblock(a.Timeblock),
		ServiceCode: a.Service,
		Status:      status,
		Source:      source,
	}
}

// expandRecurringBlackouts materializes RRULE blackouts inside the roster period. Without an
// explicit period the requirement date range is used.
func (f *File) expandRecurringBlackouts() ([]model.BlackoutSlot, error) {
	if len(f.RecurringBlackouts) == 0 {
		return nil, nil
	}

	start, end, err := f.expansionRange()
	if err != nil {
		return nil, err
	}

	var result []model.BlackoutSlot
	for i, rb := range f.RecurringBlackouts {
		rule, err := rrule.StrToRRule(rb.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for recurring blackout %d: %w", i, err)
		}
		rule.DTStart(start)

		for _, occurrence := range rule.Between(start, end, true) {
			date := model.FormatDate(occurrence)
			for _, tb := range rb.Timeblocks {
				result = append(result, model.BlackoutSlot{WorkerID: rb.Worker, Date: date, Timeblock: model.Timeblock(tb)})
			}
		}
	}
	return result, nil
}

func (f *File) expansionRange() (time.Time, time.Time, error) {
	startDate, endDate := f.PeriodStart, f.PeriodEnd
	if startDate == "" || endDate == "" {
		dates := make([]string, 0, len(f.Requirements))
		for _, r := range f.Requirements {
			dates = append(dates, r.Date)
		}
		if len(dates) == 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("recurring blackouts need a roster period or at least one requirement")
		}
		if startDate == "" {
			startDate = slices.Min(dates)
		}
		if endDate == "" {
			endDate = slices.Max(dates)
		}
	}

	start, err := model.ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("period end %s is before start %s", endDate, startDate)
	}
	return start, end, nil
}

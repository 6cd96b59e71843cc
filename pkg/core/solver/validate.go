package solver

import (
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/queue"
)

// validateInput rejects malformed input before any state is built
func validateInput(in Input, q *queue.Queue, allowUnknownServices bool) error {
	const op = "solver.validateInput"

	var start, end string
	if in.PeriodStart != "" || in.PeriodEnd != "" {
		if in.PeriodStart == "" || in.PeriodEnd == "" {
			return model.NewDataError(op, "period needs both start and end")
		}
		days, err := model.DaysBetween(in.PeriodStart, in.PeriodEnd)
		if err != nil {
			return &model.SolveError{Kind: model.KindData, Op: op, Message: "invalid period", Err: err}
		}
		if days < 0 {
			return model.NewDataError(op, "period end %s is before start %s", in.PeriodEnd, in.PeriodStart)
		}
		start, end = in.PeriodStart, in.PeriodEnd
	}

	services := make(map[string]bool, len(in.Services))
	for _, s := range in.Services {
		if s.Code == "" {
			return model.NewDataError(op, "service %q has an empty code", s.ID)
		}
		if services[s.Code] {
			return model.NewDataError(op, "duplicate service code %q", s.Code)
		}
		services[s.Code] = true
	}

	checkSlot := func(what, date string, tb model.Timeblock) error {
		if _, err := model.ParseDate(date); err != nil {
			return &model.SolveError{Kind: model.KindData, Op: op, Message: what, Err: err}
		}
		if !q.KnowsTimeblock(tb) {
			return model.NewDataError(op, "%s has unknown timeblock %q", what, tb)
		}
		if start != "" && (date < start || date > end) {
			return model.NewDataError(op, "%s on %s is outside the period %s..%s", what, date, start, end)
		}
		return nil
	}

	for i, r := range in.Requirements {
		if r.Count < 0 {
			return model.NewDataError(op, "requirement %d (%s %s %s) has negative count %d", i, r.Date, r.Timeblock, r.ServiceCode, r.Count)
		}
		if r.ServiceCode == "" {
			return model.NewDataError(op, "requirement %d has an empty service code", i)
		}
		if !services[r.ServiceCode] && !allowUnknownServices {
			return model.NewDataError(op, "requirement %d references unknown service code %q", i, r.ServiceCode)
		}
		if err := checkSlot("requirement", r.Date, r.Timeblock); err != nil {
			return err
		}
	}

	for _, a := range in.Preplanned {
		switch a.Status {
		case model.StatusActive, model.StatusBlocked, model.StatusOpen:
		default:
			return model.NewDataError(op, "pre-planned assignment for %q has unknown status %q", a.WorkerID, a.Status)
		}
		if err := checkSlot("pre-planned assignment", a.Date, a.Timeblock); err != nil {
			return err
		}
	}

	for _, b := range in.Blackouts {
		if _, err := model.ParseDate(b.Date); err != nil {
			return &model.SolveError{Kind: model.KindData, Op: op, Message: "blackout slot", Err: err}
		}
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/pairing"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/db"
)

// GetRoster retrieves a roster record by id
func (d *DB) GetRoster(ctx context.Context, rosterID string) (*db.Roster, error) {
	var r db.Roster
	err := d.pool.QueryRow(ctx, `
		SELECT id, name,
			COALESCE(to_char(period_start, 'YYYY-MM-DD'), ''),
			COALESCE(to_char(period_end, 'YYYY-MM-DD'), '')
		FROM roster
		WHERE id = $1
	`, rosterID).Scan(&r.ID, &r.Name, &r.PeriodStart, &r.PeriodEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", db.ErrRosterNotFound, rosterID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	return &r, nil
}

// LoadRosterInput assembles the full solver input of a roster in one read-only transaction
func (d *DB) LoadRosterInput(ctx context.Context, rosterID string) (solver.Input, error) {
	roster, err := d.GetRoster(ctx, rosterID)
	if err != nil {
		return solver.Input{}, err
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return solver.Input{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	in := solver.Input{
		RosterID:    roster.ID,
		PeriodStart: roster.PeriodStart,
		PeriodEnd:   roster.PeriodEnd,
	}

	if in.Workers, err = loadWorkers(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}
	if in.Services, err = loadServices(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}
	if in.Requirements, err = loadRequirements(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}
	if in.PairingRules, err = loadPairingRules(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}
	if in.Preplanned, err = loadPreplanned(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}
	if in.Blackouts, err = loadBlackouts(ctx, tx, rosterID); err != nil {
		return solver.Input{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return solver.Input{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return in, nil
}

func loadWorkers(ctx context.Context, tx pgx.Tx, rosterID string) ([]model.Worker, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, display_name, team, target_shifts, max_shifts
		FROM worker
		WHERE roster_id = $1
		ORDER BY id
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	index := make(map[string]int)
	for rows.Next() {
		var w model.Worker
		if err := rows.Scan(&w.ID, &w.DisplayName, &w.Team, &w.TargetShifts, &w.MaxShifts); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		w.Capabilities = []model.Capability{}
		index[w.ID] = len(workers)
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}
	rows.Close()

	capRows, err := tx.Query(ctx, `
		SELECT worker_id, service_code, quota
		FROM worker_capability
		WHERE roster_id = $1
		ORDER BY worker_id, service_code
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", err)
	}
	defer capRows.Close()

	for capRows.Next() {
		var workerID string
		var c model.Capability
		if err := capRows.Scan(&workerID, &c.ServiceCode, &c.Quota); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		if i, ok := index[workerID]; ok {
			workers[i].Capabilities = append(workers[i].Capabilities, c)
		}
	}
	if err := capRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capabilities: %w", err)
	}
	capRows.Close()

	unavailRows, err := tx.Query(ctx, `
		SELECT worker_id, weekday, timeblock
		FROM worker_unavailability
		WHERE roster_id = $1
		ORDER BY worker_id, weekday, timeblock
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unavailability: %w", err)
	}
	defer unavailRows.Close()

	for unavailRows.Next() {
		var workerID, weekday, timeblock string
		if err := unavailRows.Scan(&workerID, &weekday, &timeblock); err != nil {
			return nil, fmt.Errorf("failed to scan unavailability: %w", err)
		}
		i, ok := index[workerID]
		if !ok {
			continue
		}
		if workers[i].Unavailability == nil {
			workers[i].Unavailability = make(map[model.Weekday][]model.Timeblock)
		}
		day := model.Weekday(weekday)
		workers[i].Unavailability[day] = append(workers[i].Unavailability[day], model.Timeblock(timeblock))
	}
	if err := unavailRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unavailability: %w", err)
	}

	return workers, nil
}

func loadServices(ctx context.Context, tx pgx.Tx, rosterID string) ([]model.ServiceType, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, code, team, is_system
		FROM service_type
		WHERE roster_id = $1
		ORDER BY code
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query service types: %w", err)
	}
	defer rows.Close()

	var services []model.ServiceType
	for rows.Next() {
		var s model.ServiceType
		if err := rows.Scan(&s.ID, &s.Code, &s.Team, &s.System); err != nil {
			return nil, fmt.Errorf("failed to scan service type: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service types: %w", err)
	}
	return services, nil
}

func loadRequirements(ctx context.Context, tx pgx.Tx, rosterID string) ([]model.Requirement, error) {
	rows, err := tx.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), timeblock, service_code, team, count
		FROM requirement
		WHERE roster_id = $1
		ORDER BY id
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	var requirements []model.Requirement
	for rows.Next() {
		var r model.Requirement
		var timeblock string
		if err := rows.Scan(&r.Date, &timeblock, &r.ServiceCode, &r.Team, &r.Count); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		r.Timeblock = model.Timeblock(timeblock)
		requirements = append(requirements, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirements: %w", err)
	}
	return requirements, nil
}

func loadPairingRules(ctx context.Context, tx pgx.Tx, rosterID string) ([]pairing.Rule, error) {
	rows, err := tx.Query(ctx, `
		SELECT first_code, second_code, kind, description, penalty
		FROM pairing_rule
		WHERE roster_id = $1
		ORDER BY id
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairing rules: %w", err)
	}
	defer rows.Close()

	var rules []pairing.Rule
	for rows.Next() {
		var r pairing.Rule
		var kind string
		if err := rows.Scan(&r.First, &r.Second, &kind, &r.Description, &r.Penalty); err != nil {
			return nil, fmt.Errorf("failed to scan pairing rule: %w", err)
		}
		r.Kind = pairing.Kind(kind)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pairing rules: %w", err)
	}
	return rules, nil
}

func loadPreplanned(ctx context.Context, tx pgx.Tx, rosterID string) ([]model.Assignment, error) {
	rows, err := tx.Query(ctx, `
		SELECT worker_id, to_char(date, 'YYYY-MM-DD'), timeblock, service_code, status
		FROM assignment
		WHERE roster_id = $1 AND source = 'pre-planned'
		ORDER BY date, timeblock, worker_id, service_code
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pre-planned assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a := model.Assignment{Source: model.SourcePrePlanned}
		var timeblock, status string
		if err := rows.Scan(&a.WorkerID, &a.Date, &timeblock, &a.ServiceCode, &status); err != nil {
			return nil, fmt.Errorf("failed to scan pre-planned assignment: %w", err)
		}
		a.Timeblock = model.Timeblock(timeblock)
		a.Status = model.AssignmentStatus(status)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pre-planned assignments: %w", err)
	}
	return assignments, nil
}

func loadBlackouts(ctx context.Context, tx pgx.Tx, rosterID string) ([]model.BlackoutSlot, error) {
	rows, err := tx.Query(ctx, `
		SELECT worker_id, to_char(date, 'YYYY-MM-DD'), timeblock
		FROM blackout_slot
		WHERE roster_id = $1
		ORDER BY date, worker_id, timeblock
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blackout slots: %w", err)
	}
	defer rows.Close()

	var blackouts []model.BlackoutSlot
	for rows.Next() {
		var b model.BlackoutSlot
		var timeblock string
		if err := rows.Scan(&b.WorkerID, &b.Date, &timeblock); err != nil {
			return nil, fmt.Errorf("failed to scan blackout slot: %w", err)
		}
		b.Timeblock = model.Timeblock(timeblock)
		blackouts = append(blackouts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blackout slots: %w", err)
	}
	return blackouts, nil
}

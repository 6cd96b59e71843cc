package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/duty-roster/pkg/db"
)

// SaveSolveResult writes a run with its greedy assignments and bottlenecks in one transaction.
// Greedy assignments of earlier runs of the roster are replaced.
func (d *DB) SaveSolveResult(ctx context.Context, result db.SolveResult) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	run := result.Run
	_, err = tx.Exec(ctx, `
		INSERT INTO solve_run (id, roster_id, solver, status, accepted, coverage_percent,
			total_positions, filled_positions, solve_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.RosterID, run.Solver, run.Status, run.Accepted, run.CoveragePercent,
		run.TotalPositions, run.FilledPositions, run.SolveTimeMs, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert solve run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM assignment WHERE roster_id = $1 AND source = 'greedy'`, run.RosterID); err != nil {
		return fmt.Errorf("failed to delete previous greedy assignments: %w", err)
	}

	for _, a := range result.Assignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO assignment (id, roster_id, run_id, worker_id, date, timeblock, service_code, status, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, a.ID, a.RosterID, a.RunID, a.WorkerID, a.Date, a.Timeblock, a.ServiceCode, a.Status, a.Source)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	for _, b := range result.Bottlenecks {
		_, err := tx.Exec(ctx, `
			INSERT INTO bottleneck (id, run_id, roster_id, date, timeblock, service_code, team,
				needed, assigned, shortage, reason, suggestion)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, b.ID, b.RunID, b.RosterID, b.Date, b.Timeblock, b.ServiceCode, b.Team,
			b.Needed, b.Assigned, b.Shortage, b.Reason, b.Suggestion)
		if err != nil {
			return fmt.Errorf("failed to insert bottleneck: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSolveRuns retrieves the runs of a roster, newest first
func (d *DB) GetSolveRuns(ctx context.Context, rosterID string) ([]db.SolveRun, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, roster_id, solver, status, accepted, coverage_percent,
			total_positions, filled_positions, solve_time_ms, created_at
		FROM solve_run
		WHERE roster_id = $1
		ORDER BY created_at DESC
	`, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query solve runs: %w", err)
	}
	defer rows.Close()

	var runs []db.SolveRun
	for rows.Next() {
		var r db.SolveRun
		if err := rows.Scan(&r.ID, &r.RosterID, &r.Solver, &r.Status, &r.Accepted, &r.CoveragePercent,
			&r.TotalPositions, &r.FilledPositions, &r.SolveTimeMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan solve run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve runs: %w", err)
	}

	return runs, nil
}

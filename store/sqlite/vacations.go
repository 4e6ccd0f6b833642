package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/leave-engine/conflict"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/vacation"
)

// =============================================================================
// VACATION STORE (vacation.Store interface)
// =============================================================================

const vacationColumns = `
	id, officer_id, officer_name, reference_year, start_date, end_date,
	duration_days, status, change_reason, created_by, created_at, updated_at`

func (c *conn) GetVacation(ctx context.Context, id string) (*vacation.Period, error) {
	p, err := scanVacation(c.q.QueryRowContext(ctx,
		"SELECT "+vacationColumns+" FROM vacations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "vacation", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *conn) ListVacations(ctx context.Context, f vacation.Filter) ([]vacation.Period, error) {
	var (
		where []string
		args  []any
	)
	if f.OfficerID != "" {
		where = append(where, "officer_id = ?")
		args = append(args, f.OfficerID)
	}
	if f.ReferenceYear != 0 {
		where = append(where, "reference_year = ?")
		args = append(args, f.ReferenceYear)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if !f.EndsBefore.IsZero() {
		where = append(where, "end_date < ?")
		args = append(args, formatDate(f.EndsBefore))
	}

	query := "SELECT " + vacationColumns + " FROM vacations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date ASC"

	return c.queryVacations(ctx, query, args...)
}

func (c *conn) CreateVacation(ctx context.Context, p vacation.Period) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO vacations (`+vacationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OfficerID, p.OfficerName, p.ReferenceYear,
		formatDate(p.StartDate), formatDate(p.EndDate), p.DurationDays, string(p.Status),
		nullString(p.ChangeReason), p.CreatedByActorID, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vacation: %w", err)
	}
	return nil
}

// UpdateVacation replaces the mutable fields of a period.
func (c *conn) UpdateVacation(ctx context.Context, p vacation.Period) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE vacations SET
			start_date = ?, end_date = ?, status = ?, change_reason = ?, updated_at = ?
		WHERE id = ?`,
		formatDate(p.StartDate), formatDate(p.EndDate), string(p.Status),
		nullString(p.ChangeReason), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vacation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "vacation", ID: p.ID}
	}
	return nil
}

func (c *conn) queryVacations(ctx context.Context, query string, args ...any) ([]vacation.Period, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var periods []vacation.Period
	for rows.Next() {
		p, err := scanVacation(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func scanVacation(s scanner) (vacation.Period, error) {
	var (
		p                    vacation.Period
		start, end, status   string
		changeReason         sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&p.ID, &p.OfficerID, &p.OfficerName, &p.ReferenceYear, &start, &end,
		&p.DurationDays, &status, &changeReason, &p.CreatedByActorID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan vacation: %w", err)
	}
	p.StartDate = parseDate(start)
	p.EndDate = parseDate(end)
	p.Status = vacation.Status(status)
	p.ChangeReason = changeReason.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// TRANSACTIONAL VACATION STORE (vacation.TxStore interface)
// =============================================================================

// vacationTx binds both the period queries and the conflict checks to one
// transaction. The store holds a single connection, so a checker reading
// through s.db would block on the open transaction.
type vacationTx struct {
	*conn
	*conflict.Checker
}

// WithVacationTx runs fn inside a transaction.
func (s *Store) WithVacationTx(ctx context.Context, fn func(tx vacation.Tx) error) error {
	return s.conn.atomically(ctx, func(tc *conn) error {
		return fn(vacationTx{conn: tc, Checker: conflict.NewChecker(tc, nil)})
	})
}

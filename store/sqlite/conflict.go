package sqlite

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/conflict"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// COMMITMENT SOURCES (conflict.VacationSource, LeaveSource, EventSource)
// =============================================================================

// VacationsOverlapping returns the booked vacations of officerID that share
// at least one day with p.
func (c *conn) VacationsOverlapping(ctx context.Context, officerID string, p generic.Period) ([]conflict.Commitment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, start_date, end_date FROM vacations
		WHERE officer_id = ? AND status IN ('SCHEDULED', 'CHANGE_REQUESTED')
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC`,
		officerID, formatDate(p.End), formatDate(p.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to query vacations: %w", err)
	}
	defer rows.Close()

	var out []conflict.Commitment
	for rows.Next() {
		var id, start, end string
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan vacation: %w", err)
		}
		out = append(out, conflict.Commitment{
			ID:        id,
			OfficerID: officerID,
			Kind:      generic.CommitmentVacation,
			Period:    generic.Period{Start: parseDate(start), End: parseDate(end)},
		})
	}
	return out, rows.Err()
}

// ActiveLeavesBetween returns the occupying leaves of officerID dated in p.
func (c *conn) ActiveLeavesBetween(ctx context.Context, officerID string, p generic.Period) ([]conflict.Commitment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, date FROM leaves
		WHERE officer_id = ? AND date BETWEEN ? AND ?
		  AND status = 'ACTIVE'
		  AND approval NOT IN ('DENIED_BY_SERGEANT', 'REJECTED_BY_ADMIN')
		ORDER BY date ASC`,
		officerID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var out []conflict.Commitment
	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("failed to scan leave: %w", err)
		}
		out = append(out, conflict.Commitment{
			ID:        id,
			OfficerID: officerID,
			Kind:      generic.CommitmentLeave,
			Period:    generic.SingleDay(parseDate(date)),
		})
	}
	return out, rows.Err()
}

// EventsOn returns the events on day that include officerID.
func (c *conn) EventsOn(ctx context.Context, officerID string, day generic.Date) ([]conflict.Commitment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT e.id FROM events e
		JOIN event_participants p ON p.event_id = e.id
		WHERE p.officer_id = ? AND e.date = ?
		ORDER BY e.start_time ASC`,
		officerID, formatDate(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []conflict.Commitment
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, conflict.Commitment{
			ID:        id,
			OfficerID: officerID,
			Kind:      generic.CommitmentEvent,
			Period:    generic.SingleDay(day),
		})
	}
	return out, rows.Err()
}

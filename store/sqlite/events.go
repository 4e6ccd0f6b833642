package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/schedule"
)

// =============================================================================
// EVENT STORE (schedule.Store interface)
// =============================================================================

const eventColumns = `
	id, type, title, date, start_time, end_time, location, description, created_by, created_at`

func (c *conn) GetEvent(ctx context.Context, id string) (*schedule.Event, error) {
	e, err := scanEvent(c.q.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "event", ID: id}
	}
	if err != nil {
		return nil, err
	}
	participants, err := c.participants(ctx, []string{e.ID})
	if err != nil {
		return nil, err
	}
	e.ParticipantOfficerIDs = participants[e.ID]
	return &e, nil
}

func (c *conn) ListEvents(ctx context.Context, from, to generic.Date) ([]schedule.Event, error) {
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(from))
	}
	if !to.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(to))
	}
	query := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	return c.queryEvents(ctx, query, args...)
}

// CreateEvent stores the event and its participants in one transaction.
func (c *conn) CreateEvent(ctx context.Context, e schedule.Event) error {
	return c.atomically(ctx, func(tc *conn) error {
		_, err := tc.q.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, string(e.Type), e.Title, formatDate(e.Date), e.StartTime, e.EndTime,
			nullString(e.Location), nullString(e.Description), e.CreatedByActorID, formatTime(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		for i, officerID := range e.ParticipantOfficerIDs {
			_, err := tc.q.ExecContext(ctx,
				"INSERT INTO event_participants (event_id, officer_id, position) VALUES (?, ?, ?)",
				e.ID, officerID, i)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}
		return nil
	})
}

func (c *conn) DeleteEvent(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "event", ID: id}
	}
	return nil
}

func (c *conn) queryEvents(ctx context.Context, query string, args ...any) ([]schedule.Event, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	var events []schedule.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the connection before the participant query.
	rows.Close()

	if len(events) == 0 {
		return events, nil
	}
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	participants, err := c.participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].ParticipantOfficerIDs = participants[events[i].ID]
	}
	return events, nil
}

func (c *conn) participants(ctx context.Context, eventIDs []string) (map[string][]string, error) {
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	rows, err := c.q.QueryContext(ctx,
		"SELECT event_id, officer_id FROM event_participants WHERE event_id IN ("+placeholders(len(args))+") ORDER BY event_id, position",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(eventIDs))
	for rows.Next() {
		var eventID, officerID string
		if err := rows.Scan(&eventID, &officerID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out[eventID] = append(out[eventID], officerID)
	}
	return out, rows.Err()
}

func scanEvent(s scanner) (schedule.Event, error) {
	var (
		e                     schedule.Event
		typ, date, createdAt  string
		location, description sql.NullString
	)
	err := s.Scan(&e.ID, &typ, &e.Title, &date, &e.StartTime, &e.EndTime,
		&location, &description, &e.CreatedByActorID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan event: %w", err)
	}
	e.Type = schedule.Type(typ)
	e.Date = parseDate(date)
	e.Location = location.String
	e.Description = description.String
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// HISTORY LOG (generic.HistoryLog interface)
// =============================================================================

// Record appends a history entry. Append-only.
func (c *conn) Record(ctx context.Context, h generic.HistoryEntry) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO history (id, kind, actor_id, actor_name, subject_id, before_json, after_json, motive, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, string(h.Kind), h.ActorID, h.ActorName, h.SubjectID,
		nullString(string(h.Before)), nullString(string(h.After)), nullString(h.Motive),
		formatTime(h.At),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// History returns the entries of a subject, oldest first.
func (c *conn) History(ctx context.Context, subjectID string) ([]generic.HistoryEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, kind, actor_id, actor_name, subject_id, before_json, after_json, motive, at
		FROM history WHERE subject_id = ?
		ORDER BY at ASC, rowid ASC`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []generic.HistoryEntry
	for rows.Next() {
		var (
			h                     generic.HistoryEntry
			kind, at              string
			before, after, motive sql.NullString
		)
		if err := rows.Scan(&h.ID, &kind, &h.ActorID, &h.ActorName, &h.SubjectID,
			&before, &after, &motive, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.Kind = generic.HistoryKind(kind)
		if before.Valid {
			h.Before = []byte(before.String)
		}
		if after.Valid {
			h.After = []byte(after.String)
		}
		h.Motive = motive.String
		h.At = parseTime(at)
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// =============================================================================
// NOTIFICATION INBOX (generic.Notifier interface)
// =============================================================================

// Notify stores a notification in the recipient's inbox.
func (c *conn) Notify(ctx context.Context, n generic.Notification) error {
	if n.ID == "" {
		n.ID = generic.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, link, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, nullString(n.Link), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Notifications returns the inbox of userID, newest first.
func (c *conn) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]generic.Notification, error) {
	query := "SELECT id, user_id, message, link, created_at, read_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := c.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []generic.Notification
	for rows.Next() {
		var (
			n            generic.Notification
			link, readAt sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &link, &createdAt, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Link = link.String
		n.CreatedAt = parseTime(createdAt)
		if readAt.Valid {
			t := parseTime(readAt.String)
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead stamps a notification of userID as read. Marking an
// already read notification is a no-op.
func (c *conn) MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?`,
		formatTime(at), id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "notification", ID: id}
	}
	return nil
}

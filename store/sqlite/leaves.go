package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE STORE (leave.Store interface)
// =============================================================================

const leaveColumns = `
	id, officer_id, officer_name, registration, platoon, date, status, approval,
	reason_json, reason_text, created_by, responsible_sergeant_id, sergeant_id,
	admin_id, exchanged_to_date, sergeant_opinion, admin_opinion,
	created_at, updated_at, updated_by, version`

// GetLeave retrieves a leave record by ID.
func (c *conn) GetLeave(ctx context.Context, id string) (*leave.Record, error) {
	row := c.q.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leaves WHERE id = ?", id)
	r, err := scanLeave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "leave", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListLeaves returns the records matching filter, ordered by date.
func (c *conn) ListLeaves(ctx context.Context, f leave.Filter) ([]leave.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.OfficerID != "" {
		where = append(where, "officer_id = ?")
		args = append(args, f.OfficerID)
	}
	if f.Platoon != "" {
		where = append(where, "platoon = ?")
		args = append(args, f.Platoon)
	}
	if f.Year != 0 {
		where = append(where, "date BETWEEN ? AND ?")
		args = append(args, formatDate(generic.StartOfYear(f.Year)), formatDate(generic.EndOfYear(f.Year)))
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(f.To))
	}
	if len(f.Approvals) > 0 {
		where = append(where, "approval IN ("+placeholders(len(f.Approvals))+")")
		for _, a := range f.Approvals {
			args = append(args, string(a))
		}
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}

	query := "SELECT " + leaveColumns + " FROM leaves"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var records []leave.Record
	for rows.Next() {
		r, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CreateLeave inserts a new record. A second occupying leave for the same
// officer and day is reported as a *generic.ConflictError.
func (c *conn) CreateLeave(ctx context.Context, r *leave.Record) error {
	reasonJSON, err := json.Marshal(r.Reason)
	if err != nil {
		return fmt.Errorf("failed to encode reason: %w", err)
	}
	if r.Version == 0 {
		r.Version = 1
	}

	args := leaveArgs(*r, reasonJSON)
	query := "INSERT INTO leaves (" + leaveColumns + ") VALUES (" + placeholders(len(args)) + ")"

	_, err = c.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return c.occupiedDayConflict(ctx, r.OfficerID, r.Date)
		}
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

// UpdateLeave replaces a record if its stored version equals expectedVersion.
func (c *conn) UpdateLeave(ctx context.Context, r leave.Record, expectedVersion int) error {
	reasonJSON, err := json.Marshal(r.Reason)
	if err != nil {
		return fmt.Errorf("failed to encode reason: %w", err)
	}

	query := `
		UPDATE leaves SET
			officer_id = ?, officer_name = ?, registration = ?, platoon = ?, date = ?,
			status = ?, approval = ?, reason_json = ?, reason_text = ?, created_by = ?,
			responsible_sergeant_id = ?, sergeant_id = ?, admin_id = ?,
			exchanged_to_date = ?, sergeant_opinion = ?, admin_opinion = ?,
			created_at = ?, updated_at = ?, updated_by = ?, version = ?
		WHERE id = ? AND version = ?
	`
	args := leaveArgs(r, reasonJSON)[1:]
	args = append(args, r.ID, expectedVersion)

	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return c.occupiedDayConflict(ctx, r.OfficerID, r.Date)
		}
		return fmt.Errorf("failed to update leave: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	if n == 0 {
		if _, err := c.GetLeave(ctx, r.ID); err != nil {
			return err
		}
		return generic.ErrConcurrentModification
	}
	return nil
}

// occupiedDayConflict builds the conflict error for a unique-index violation.
func (c *conn) occupiedDayConflict(ctx context.Context, officerID string, day generic.Date) error {
	var existingID string
	err := c.q.QueryRowContext(ctx, `
		SELECT id FROM leaves
		WHERE officer_id = ? AND date = ? AND status = 'ACTIVE'
		  AND approval NOT IN ('DENIED_BY_SERGEANT', 'REJECTED_BY_ADMIN')
		LIMIT 1`, officerID, formatDate(day)).Scan(&existingID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to resolve conflicting leave: %w", err)
	}
	return &generic.ConflictError{
		OfficerID: officerID,
		Date:      day,
		Kind:      generic.CommitmentLeave,
		RecordID:  existingID,
	}
}

func leaveArgs(r leave.Record, reasonJSON []byte) []any {
	var exchanged sql.NullString
	if r.ExchangedToDate != nil {
		exchanged = nullString(formatDate(*r.ExchangedToDate))
	}
	return []any{
		r.ID, r.OfficerID, r.Snapshot.Name, r.Snapshot.Registration, r.Snapshot.Platoon,
		formatDate(r.Date), string(r.Status), string(r.Approval),
		string(reasonJSON), r.ReasonText, r.CreatedByActorID,
		nullString(r.ResponsibleSergeantID), nullString(r.SergeantID), nullString(r.AdminID),
		exchanged, nullString(r.SergeantOpinion), nullString(r.AdminOpinion),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt), r.UpdatedByActorID, r.Version,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLeave(s scanner) (leave.Record, error) {
	var (
		r                                       leave.Record
		date, status, approval                  string
		reasonJSON                              string
		responsible, sergeant, admin, exchanged sql.NullString
		sergeantOpinion, adminOpinion           sql.NullString
		createdAt, updatedAt                    string
	)
	err := s.Scan(
		&r.ID, &r.OfficerID, &r.Snapshot.Name, &r.Snapshot.Registration, &r.Snapshot.Platoon,
		&date, &status, &approval, &reasonJSON, &r.ReasonText, &r.CreatedByActorID,
		&responsible, &sergeant, &admin, &exchanged, &sergeantOpinion, &adminOpinion,
		&createdAt, &updatedAt, &r.UpdatedByActorID, &r.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan leave: %w", err)
	}

	r.Date = parseDate(date)
	r.Status = leave.Status(status)
	r.Approval = leave.Approval(approval)
	if err := json.Unmarshal([]byte(reasonJSON), &r.Reason); err != nil {
		return r, fmt.Errorf("failed to decode reason of leave %s: %w", r.ID, err)
	}
	r.ResponsibleSergeantID = responsible.String
	r.SergeantID = sergeant.String
	r.AdminID = admin.String
	if exchanged.Valid {
		d := parseDate(exchanged.String)
		r.ExchangedToDate = &d
	}
	r.SergeantOpinion = sergeantOpinion.String
	r.AdminOpinion = adminOpinion.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// =============================================================================
// COMMENT STORE (leave.CommentStore interface)
// =============================================================================

// AppendComment adds a comment. Append-only.
func (c *conn) AppendComment(ctx context.Context, cm leave.Comment) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO leave_comments (id, leave_id, author_id, author_name, author_rank, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cm.ID, cm.LeaveID, cm.AuthorActorID, cm.AuthorName, cm.AuthorRank, cm.Message,
		formatTime(cm.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// Comments returns the thread of a leave, oldest first.
func (c *conn) Comments(ctx context.Context, leaveID string) ([]leave.Comment, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, leave_id, author_id, author_name, author_rank, message, created_at
		FROM leave_comments WHERE leave_id = ?
		ORDER BY created_at ASC, rowid ASC`, leaveID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []leave.Comment
	for rows.Next() {
		var cm leave.Comment
		var ts string
		if err := rows.Scan(&cm.ID, &cm.LeaveID, &cm.AuthorActorID, &cm.AuthorName,
			&cm.AuthorRank, &cm.Message, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		cm.Timestamp = parseTime(ts)
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CREDIT LEDGER (generic.LedgerStore interface)
// =============================================================================

// AppendEntry adds a credit adjustment. This is the only write on the table.
func (c *conn) AppendEntry(ctx context.Context, e generic.LedgerEntry) error {
	query := `
		INSERT INTO credit_entries
		(id, officer_id, year, delta, reason, created_at, created_by, created_by_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.q.ExecContext(ctx, query,
		e.ID, e.OfficerID, e.Year, e.Delta, e.Reason,
		formatTime(e.CreatedAt), e.CreatedByActorID, e.CreatedByName,
	)
	if err != nil {
		return fmt.Errorf("failed to append credit entry: %w", err)
	}
	return nil
}

// Entries returns the entries for officer+year in creation order.
func (c *conn) Entries(ctx context.Context, officerID string, year int) ([]generic.LedgerEntry, error) {
	query := `
		SELECT id, officer_id, year, delta, reason, created_at, created_by, created_by_name
		FROM credit_entries
		WHERE officer_id = ? AND year = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := c.q.QueryContext(ctx, query, officerID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit entries: %w", err)
	}
	defer rows.Close()

	var entries []generic.LedgerEntry
	for rows.Next() {
		var e generic.LedgerEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.OfficerID, &e.Year, &e.Delta, &e.Reason,
			&createdAt, &e.CreatedByActorID, &e.CreatedByName); err != nil {
			return nil, fmt.Errorf("failed to scan credit entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

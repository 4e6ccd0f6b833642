/*
ledger.go - Append-only credit ledger

PURPOSE:
  The ledger is the source of truth for how many leave credits an officer
  was granted for a year. Each entry is a signed adjustment; credits for
  (officer, year) are the sum of the deltas. There is no stored balance
  that could drift from the entries.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. NON-ZERO: Delta != 0
  4. ADMIN-ONLY: Only ADMIN actors create entries

CORRECTIONS:
  A wrong grant is corrected by a second entry with the opposite sign.
  Both remain in the ledger:

  Officer granted +10 for 2024, then -2 (typo): credits = 8

CONSUMPTION:
  Consumption is NOT written to the ledger. It is derived from validated
  leave records at read time (see leave/balance.go), so deleting or
  exchanging a leave gives the credit back without a compensating entry.

SEE ALSO:
  - leave/balance.go: credits - consumed
  - store/sqlite/ledger.go: persistence
*/
package generic

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// LEDGER ENTRY
// =============================================================================

type LedgerEntry struct {
	ID               string
	OfficerID        string
	Year             int
	Delta            int
	Reason           string
	CreatedAt        time.Time
	CreatedByActorID string
	CreatedByName    string
}

// LedgerStore persists ledger entries.
// IMPORTANT: LedgerStore is APPEND-ONLY. No Update, No Delete. Ever.
type LedgerStore interface {
	// AppendEntry persists an entry. This is the ONLY write operation.
	AppendEntry(ctx context.Context, entry LedgerEntry) error

	// Entries returns the entries for officer+year in creation order.
	Entries(ctx context.Context, officerID string, year int) ([]LedgerEntry, error)
}

// SumCredits adds up the deltas of entries.
func SumCredits(entries []LedgerEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Delta
	}
	return total
}

// =============================================================================
// CREDIT LEDGER - The credit-adjustment operation
// =============================================================================

type CreditLedger struct {
	Store LedgerStore
	Clock Clock
	NewID func() string
}

// GrantInput is a requested credit adjustment.
type GrantInput struct {
	OfficerID string
	Year      int
	Delta     int
	Reason    string
}

// Grant appends a signed credit adjustment on behalf of an ADMIN actor.
func (l *CreditLedger) Grant(ctx context.Context, actor Actor, in GrantInput) (*LedgerEntry, error) {
	if actor.Role != RoleAdmin {
		return nil, &PermissionError{Role: actor.Role, Operation: "adjust credits"}
	}
	if strings.TrimSpace(in.OfficerID) == "" {
		return nil, Invalid("officer_id", "is required")
	}
	if in.Year < 1900 || in.Year > 9999 {
		return nil, Invalid("year", "%d is out of range", in.Year)
	}
	if in.Delta == 0 {
		return nil, Invalid("delta", "must be non-zero")
	}

	entry := LedgerEntry{
		OfficerID:        in.OfficerID,
		Year:             in.Year,
		Delta:            in.Delta,
		Reason:           strings.TrimSpace(in.Reason),
		CreatedAt:        l.Clock.Now(),
		CreatedByActorID: actor.ID,
		CreatedByName:    actor.Name,
	}
	if l.NewID != nil {
		entry.ID = l.NewID()
	} else {
		entry.ID = NewID()
	}

	if err := l.Store.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return &entry, nil
}

// Credits returns the sum of deltas for officer+year.
func (l *CreditLedger) Credits(ctx context.Context, officerID string, year int) (int, error) {
	entries, err := l.Store.Entries(ctx, officerID, year)
	if err != nil {
		return 0, err
	}
	return SumCredits(entries), nil
}

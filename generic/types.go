/*
Package generic provides the shared engine types of the leave engine.

PURPOSE:
  This package holds everything the domain packages (leave, vacation,
  schedule, conflict) have in common: calendar days and periods, the error
  taxonomy, actor identity and roles, the append-only credit ledger, and the
  contracts of the side-channel collaborators (history, notifications).

KEY CONCEPTS:
  - Date: a calendar day, no time component
  - Period: an inclusive range of days
  - Actor: the role-bearing user invoking an operation
  - LedgerEntry: a signed, immutable credit adjustment
  - HistoryEntry / Notification: post-commit side effects

DESIGN PRINCIPLES:
  1. Immutability: ledger entries are never modified, only compensated
  2. Derivation: balances are computed from entries and records, never stored
  3. Type Safety: roles, statuses and kinds are typed strings
  4. Auditability: every transition leaves a history entry

SEE ALSO:
  - errors.go: error kinds
  - ledger.go: credit ledger
  - store.go: collaborator contracts
*/
package generic

import "github.com/google/uuid"

// NewID returns a random identifier for a new record.
func NewID() string {
	return uuid.NewString()
}

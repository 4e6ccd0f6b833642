/*
store.go - Collaborator contracts shared by every domain package

PURPOSE:
  Declares the side-channel collaborators the workflows talk to after a
  state change has been committed:

  HistoryLog: who did what, with before/after snapshots (append-only)
  Notifier:   fire-and-forget message to a user account

SOFT DEPENDENCIES:
  Both collaborators are best-effort. A failure is logged by the caller and
  never rolls back the transition that triggered it. Workflows therefore
  call them only after the store transaction has committed.

IMPLEMENTATIONS:
  - store/sqlite: history table and notification inbox
  - NopNotifier / NopHistory: for tools and tests that do not care

SEE ALSO:
  - ledger.go: LedgerStore, the append-only credit store
  - leave/store.go: leave record persistence
*/
package generic

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// HISTORY LOG - Audit trail, tracks who did what when
// =============================================================================

// HistoryKind names the transition being recorded.
type HistoryKind string

const (
	HistoryLeaveCreated       HistoryKind = "leave_created"
	HistoryLeaveApproved      HistoryKind = "leave_approved_by_sergeant"
	HistoryLeaveDenied        HistoryKind = "leave_denied_by_sergeant"
	HistoryLeaveValidated     HistoryKind = "leave_validated_by_admin"
	HistoryLeaveRejected      HistoryKind = "leave_rejected_by_admin"
	HistoryLeaveExchanged     HistoryKind = "leave_exchanged"
	HistoryLeaveDeleted       HistoryKind = "leave_deleted"
	HistoryLeaveRestored      HistoryKind = "leave_restored"
	HistoryLeaveCommented     HistoryKind = "leave_commented"
	HistoryCreditAdjusted     HistoryKind = "credit_adjusted"
	HistoryVacationScheduled  HistoryKind = "vacation_scheduled"
	HistoryVacationChanged    HistoryKind = "vacation_change_requested"
	HistoryVacationReschedule HistoryKind = "vacation_rescheduled"
	HistoryVacationCancelled  HistoryKind = "vacation_cancelled"
	HistoryVacationCompleted  HistoryKind = "vacation_completed"
	HistoryEventCreated       HistoryKind = "event_created"
	HistoryEventDeleted       HistoryKind = "event_deleted"
)

// HistoryEntry records one transition. Before/After are JSON snapshots of
// the subject; Before is empty for creations.
type HistoryEntry struct {
	ID        string
	Kind      HistoryKind
	ActorID   string
	ActorName string
	SubjectID string
	Before    json.RawMessage
	After     json.RawMessage
	Motive    string
	At        time.Time
}

// HistoryLog stores history entries. Append-only.
type HistoryLog interface {
	Record(ctx context.Context, entry HistoryEntry) error
	History(ctx context.Context, subjectID string) ([]HistoryEntry, error)
}

// Snapshot marshals v for a HistoryEntry. A nil v yields an empty snapshot.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notification is a message addressed to one user account. Link is an
// optional deep link into the client, e.g. "/leaves/<id>".
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Link      string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Notifier delivers notifications. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }

// NopHistory drops every history entry.
type NopHistory struct{}

func (NopHistory) Record(context.Context, HistoryEntry) error { return nil }
func (NopHistory) History(context.Context, string) ([]HistoryEntry, error) {
	return nil, nil
}

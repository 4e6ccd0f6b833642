package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// STORE - Leave record persistence
// =============================================================================

// Store persists leave records. Records are never removed; deletion is a
// status value.
type Store interface {
	// GetLeave returns a *generic.NotFoundError for an unknown id.
	GetLeave(ctx context.Context, id string) (*Record, error)

	ListLeaves(ctx context.Context, filter Filter) ([]Record, error)

	// CreateLeave inserts rec with Version 1. A second record occupying the
	// same officer and day yields a *generic.ConflictError.
	CreateLeave(ctx context.Context, rec *Record) error

	// UpdateLeave replaces the stored record if its version still equals
	// expectedVersion and bumps the version. Otherwise it returns
	// generic.ErrConcurrentModification and writes nothing.
	UpdateLeave(ctx context.Context, rec Record, expectedVersion int) error
}

// CommentStore persists comments. Append-only.
type CommentStore interface {
	AppendComment(ctx context.Context, c Comment) error
	Comments(ctx context.Context, leaveID string) ([]Comment, error)
}

// =============================================================================
// TRANSACTIONAL REPOSITORY
// =============================================================================

// Repository is what a workflow transition reads and writes: leave records
// and the credit ledger that gates them.
type Repository interface {
	Store
	generic.LedgerStore
}

// TxRepository wraps Repository with transaction support.
type TxRepository interface {
	Repository

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	// fn must only use the Repository it is given.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

/*
workflow.go - Leave approval state machine

PURPOSE:
  Orchestrates every change to a leave record. A record moves along two
  axes: the approval pipeline and the status lifecycle of a validated leave.

APPROVAL PIPELINE:
  ┌──────────────────────────────────────────────────────────────────────┐
  │                                                                      │
  │  SUBORDINATE ──▶ SENT_TO_SERGEANT ──APPROVE──▶ APPROVED_BY_SERGEANT  │
  │                        │                              │              │
  │                      DENY                    VALIDATE │ REJECT       │
  │                        ▼                              ▼      ▼       │
  │               DENIED_BY_SERGEANT       VALIDATED_BY_ADMIN  REJECTED  │
  │                                                                      │
  │  SERGEANT creates directly at APPROVED_BY_SERGEANT                   │
  │  ADMIN    creates directly at VALIDATED_BY_ADMIN                     │
  └──────────────────────────────────────────────────────────────────────┘

STATUS LIFECYCLE (only once VALIDATED_BY_ADMIN):
  ACTIVE ──exchange──▶ EXCHANGED ──restore──▶ ACTIVE
  ACTIVE ──delete────▶ DELETED   ──restore──▶ ACTIVE

TRANSITION PROTOCOL:
  1. Role check              (PermissionError)
  2. Input check             (ValidationError)
  3. Conflict pre-check      (ConflictError), outside the transaction
  4. In one transaction: re-read, state check (StateConflictError), apply,
     stamp, compare-and-swap on Version. A lost swap is a StateConflictError.
  5. After commit: history entry and notifications. Both are best-effort;
     failures are logged and never undo the transition.

SEE ALSO:
  - capability.go: which role may do what from which state
  - balance.go: the credit gate applied on Create
  - store.go: TxRepository
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// ConflictChecker reports whether an officer is free for a leave on day.
// excludeLeaveID is ignored when empty.
type ConflictChecker interface {
	CheckLeave(ctx context.Context, officerID string, day generic.Date, excludeLeaveID string) error
}

// =============================================================================
// WORKFLOW
// =============================================================================

type Workflow struct {
	Repo      TxRepository
	Comments  CommentStore
	Directory generic.Directory
	Conflicts ConflictChecker
	Notifier  generic.Notifier
	History   generic.HistoryLog
	Clock     generic.Clock
	NewID     func() string
	Logger    *zap.Logger
}

// Verdicts
type SergeantVerdict string

const (
	SergeantApprove SergeantVerdict = "APPROVE"
	SergeantDeny    SergeantVerdict = "DENY"
)

type AdminVerdict string

const (
	AdminValidate AdminVerdict = "VALIDATE"
	AdminReject   AdminVerdict = "REJECT"
)

// CreateInput is a new leave request.
type CreateInput struct {
	OfficerID     string
	Date          generic.Date
	Reason        Reason
	AllowOverride bool
}

// CreateResult carries the created record and, for credit-consuming
// reasons, the balance check that admitted it.
type CreateResult struct {
	Record  *Record
	Balance *BalanceCheck
}

// =============================================================================
// CREATE
// =============================================================================

// Create registers a new leave request. The initial approval depends on the
// actor's role; see the pipeline above.
func (w *Workflow) Create(ctx context.Context, actor generic.Actor, in CreateInput) (*CreateResult, error) {
	// 1. Role and input
	if !RolePermits(actor.Role, OpCreate) {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: string(OpCreate)}
	}
	if strings.TrimSpace(in.OfficerID) == "" {
		return nil, generic.Invalid("officer_id", "is required")
	}
	if in.Date.IsZero() {
		return nil, generic.Invalid("date", "is required")
	}
	if today := w.Clock.Today(); in.Date.Before(today) {
		return nil, generic.Invalid("date", "%s is in the past", in.Date)
	}
	reason, err := in.Reason.Normalize()
	if err != nil {
		return nil, err
	}

	// 2. Ownership
	if actor.Role == generic.RoleSubordinate && actor.OfficerID != in.OfficerID {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "request leave for another officer"}
	}

	// 3. Officer
	officer, err := w.Directory.FindOfficer(ctx, in.OfficerID)
	if err != nil {
		if generic.IsNotFound(err) {
			return nil, generic.Invalid("officer_id", "officer %s not found", in.OfficerID)
		}
		return nil, fmt.Errorf("failed to load officer: %w", err)
	}
	if !officer.Active {
		return nil, generic.Invalid("officer_id", "officer %s is inactive", in.OfficerID)
	}

	// 4. Calendar
	if err := w.checkConflict(ctx, officer.ID, in.Date, ""); err != nil {
		return nil, err
	}

	// 5. Build the record
	now := w.Clock.Now()
	rec := &Record{
		ID:        w.newID(),
		OfficerID: officer.ID,
		Snapshot: OfficerSnapshot{
			Name:         officer.Name,
			Registration: officer.Registration,
			Platoon:      officer.Platoon,
		},
		Date:             in.Date,
		Status:           StatusActive,
		Reason:           reason,
		ReasonText:       reason.Text(),
		CreatedByActorID: actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
		UpdatedByActorID: actor.ID,
		Version:          1,
	}
	if sergeant, err := w.Directory.FindActiveSergeantForPlatoon(ctx, officer.Platoon); err != nil {
		return nil, fmt.Errorf("failed to resolve platoon sergeant: %w", err)
	} else if sergeant != nil {
		rec.ResponsibleSergeantID = sergeant.ID
	}
	switch actor.Role {
	case generic.RoleSubordinate:
		rec.Approval = ApprovalSentToSergeant
	case generic.RoleSergeant:
		rec.Approval = ApprovalApprovedBySergeant
		rec.SergeantID = actor.ID
	case generic.RoleAdmin:
		rec.Approval = ApprovalValidatedByAdmin
		rec.AdminID = actor.ID
	}

	// 6. Balance gate and insert, atomically
	override := in.AllowOverride && (actor.Role == generic.RoleAdmin || actor.Role == generic.RoleSergeant)
	var check *BalanceCheck
	err = w.Repo.WithTx(ctx, func(repo Repository) error {
		if reason.ConsumesCredit() {
			bc := &BalanceCalculator{Ledger: repo, Leaves: repo}
			c, err := bc.CanRequest(ctx, officer.ID, in.Date, override)
			if err != nil {
				return err
			}
			check = c
		}
		return repo.CreateLeave(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	// 7. Side effects
	log := w.log().With(zap.String("leave_id", rec.ID), zap.String("officer_id", rec.OfficerID))
	if check != nil && check.Overridden {
		log.Warn("leave created without balance", zap.String("warning", check.Warning()))
	}
	w.record(ctx, actor, generic.HistoryLeaveCreated, nil, rec, "")
	if actor.Role == generic.RoleSubordinate {
		w.notify(ctx, actor, rec, fmt.Sprintf("%s requested a leave for %s: %s",
			rec.Snapshot.Name, rec.Date, rec.ReasonText), rec.ResponsibleSergeantID)
	}
	log.Info("leave created", zap.String("approval", string(rec.Approval)))

	return &CreateResult{Record: rec, Balance: check}, nil
}

// =============================================================================
// APPROVAL DECISIONS
// =============================================================================

// SergeantDecision approves or denies a request waiting for the sergeant.
func (w *Workflow) SergeantDecision(ctx context.Context, actor generic.Actor, leaveID string, verdict SergeantVerdict, opinion string) (*Record, error) {
	opinion = strings.TrimSpace(opinion)
	var next Approval
	var kind generic.HistoryKind
	switch verdict {
	case SergeantApprove:
		next, kind = ApprovalApprovedBySergeant, generic.HistoryLeaveApproved
	case SergeantDeny:
		next, kind = ApprovalDeniedBySergeant, generic.HistoryLeaveDenied
	default:
		if !RolePermits(actor.Role, OpSergeantDecision) {
			return nil, &generic.PermissionError{Role: actor.Role, Operation: string(OpSergeantDecision)}
		}
		return nil, generic.Invalid("decision", "must be APPROVE or DENY")
	}

	rec, err := w.transition(ctx, actor, leaveID, mutation{
		op:     OpSergeantDecision,
		kind:   kind,
		motive: opinion,
		validate: func() error {
			if opinion == "" {
				return generic.Invalid("opinion", "is required")
			}
			return nil
		},
		apply: func(r *Record) error {
			r.Approval = next
			r.SergeantID = actor.ID
			r.SergeantOpinion = opinion
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	if verdict == SergeantApprove {
		admins, err := w.Directory.FindUsersByRole(ctx, generic.RoleAdmin)
		if err != nil {
			w.log().Warn("failed to resolve admins", zap.String("leave_id", rec.ID), zap.Error(err))
		}
		ids := make([]string, 0, len(admins))
		for _, a := range admins {
			if a.Active {
				ids = append(ids, a.ID)
			}
		}
		w.notify(ctx, actor, rec, fmt.Sprintf("Leave of %s on %s approved by sergeant, awaiting validation",
			rec.Snapshot.Name, rec.Date), ids...)
	} else {
		w.notify(ctx, actor, rec, fmt.Sprintf("Your leave on %s was denied: %s",
			rec.Date, opinion), w.officerUserID(ctx, rec.OfficerID))
	}
	return rec, nil
}

// AdminDecision validates or rejects a request approved by the sergeant.
func (w *Workflow) AdminDecision(ctx context.Context, actor generic.Actor, leaveID string, verdict AdminVerdict, opinion string) (*Record, error) {
	opinion = strings.TrimSpace(opinion)
	var next Approval
	var kind generic.HistoryKind
	switch verdict {
	case AdminValidate:
		next, kind = ApprovalValidatedByAdmin, generic.HistoryLeaveValidated
	case AdminReject:
		next, kind = ApprovalRejectedByAdmin, generic.HistoryLeaveRejected
	default:
		if !RolePermits(actor.Role, OpAdminDecision) {
			return nil, &generic.PermissionError{Role: actor.Role, Operation: string(OpAdminDecision)}
		}
		return nil, generic.Invalid("decision", "must be VALIDATE or REJECT")
	}

	rec, err := w.transition(ctx, actor, leaveID, mutation{
		op:     OpAdminDecision,
		kind:   kind,
		motive: opinion,
		validate: func() error {
			if opinion == "" {
				return generic.Invalid("opinion", "is required")
			}
			return nil
		},
		apply: func(r *Record) error {
			r.Approval = next
			r.AdminID = actor.ID
			r.AdminOpinion = opinion
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	officerUser := w.officerUserID(ctx, rec.OfficerID)
	if verdict == AdminValidate {
		w.notify(ctx, actor, rec, fmt.Sprintf("Leave of %s on %s validated",
			rec.Snapshot.Name, rec.Date), rec.ResponsibleSergeantID, officerUser)
	} else {
		w.notify(ctx, actor, rec, fmt.Sprintf("Your leave on %s was rejected: %s",
			rec.Date, opinion), officerUser)
	}
	return rec, nil
}

// =============================================================================
// STATUS LIFECYCLE
// =============================================================================

// Exchange moves a validated leave to another day. The record keeps its
// original date and records the new one in ExchangedToDate.
func (w *Workflow) Exchange(ctx context.Context, actor generic.Actor, leaveID string, newDate generic.Date, reasonText string) (*Record, error) {
	reasonText = strings.TrimSpace(reasonText)
	rec, err := w.transition(ctx, actor, leaveID, mutation{
		op:     OpExchange,
		kind:   generic.HistoryLeaveExchanged,
		motive: reasonText,
		validate: func() error {
			if newDate.IsZero() {
				return generic.Invalid("new_date", "is required")
			}
			if newDate.Before(w.Clock.Today()) {
				return generic.Invalid("new_date", "%s is in the past", newDate)
			}
			if reasonText == "" {
				return generic.Invalid("reason", "is required")
			}
			return nil
		},
		precheck: func(ctx context.Context, r Record) error {
			if newDate.Equal(r.Date) {
				return generic.Invalid("new_date", "must differ from the leave date")
			}
			return w.checkConflict(ctx, r.OfficerID, newDate, r.ID)
		},
		apply: func(r *Record) error {
			if newDate.Equal(r.Date) {
				return generic.Invalid("new_date", "must differ from the leave date")
			}
			d := newDate
			r.Status = StatusExchanged
			r.ExchangedToDate = &d
			r.ReasonText = reasonText
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	w.notify(ctx, actor, rec, fmt.Sprintf("Your leave on %s was exchanged to %s: %s",
		rec.Date, newDate, reasonText), w.officerUserID(ctx, rec.OfficerID))
	return rec, nil
}

// Delete withdraws a validated leave. The record is kept with status DELETED.
func (w *Workflow) Delete(ctx context.Context, actor generic.Actor, leaveID string, reasonText string) (*Record, error) {
	reasonText = strings.TrimSpace(reasonText)
	rec, err := w.transition(ctx, actor, leaveID, mutation{
		op:     OpDelete,
		kind:   generic.HistoryLeaveDeleted,
		motive: reasonText,
		validate: func() error {
			if reasonText == "" {
				return generic.Invalid("reason", "is required")
			}
			return nil
		},
		apply: func(r *Record) error {
			r.Status = StatusDeleted
			r.ReasonText = reasonText
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	w.notify(ctx, actor, rec, fmt.Sprintf("Your leave on %s was deleted: %s",
		rec.Date, reasonText), w.officerUserID(ctx, rec.OfficerID))
	return rec, nil
}

// Restore re-activates an exchanged or deleted leave. Only the status and
// the exchange date change; ReasonText keeps the last motive.
func (w *Workflow) Restore(ctx context.Context, actor generic.Actor, leaveID string) (*Record, error) {
	rec, err := w.transition(ctx, actor, leaveID, mutation{
		op:   OpRestore,
		kind: generic.HistoryLeaveRestored,
		precheck: func(ctx context.Context, r Record) error {
			return w.checkConflict(ctx, r.OfficerID, r.Date, r.ID)
		},
		apply: func(r *Record) error {
			r.Status = StatusActive
			r.ExchangedToDate = nil
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	w.notify(ctx, actor, rec, fmt.Sprintf("Your leave on %s was restored", rec.Date),
		w.officerUserID(ctx, rec.OfficerID))
	return rec, nil
}

// =============================================================================
// COMMENTS
// =============================================================================

// Comment appends a message to an open request. A subordinate may only
// comment on its own leave.
func (w *Workflow) Comment(ctx context.Context, actor generic.Actor, leaveID, message string) (*Comment, error) {
	if !RolePermits(actor.Role, OpComment) {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: string(OpComment)}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, generic.Invalid("message", "is required")
	}

	rec, err := w.Repo.GetLeave(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	if !StateAllows(OpComment, rec.State()) {
		return nil, &generic.StateConflictError{SubjectID: rec.ID, Operation: string(OpComment), Current: rec.State().String()}
	}
	if actor.Role == generic.RoleSubordinate && actor.OfficerID != rec.OfficerID {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "comment on another officer's leave"}
	}

	c := Comment{
		ID:            w.newID(),
		LeaveID:       rec.ID,
		AuthorActorID: actor.ID,
		AuthorName:    actor.Name,
		Message:       message,
		Timestamp:     w.Clock.Now(),
	}
	if actor.OfficerID != "" {
		if o, err := w.Directory.FindOfficer(ctx, actor.OfficerID); err == nil {
			c.AuthorRank = o.Rank
		}
	}
	if err := w.Comments.AppendComment(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}

	w.record(ctx, actor, generic.HistoryLeaveCommented, nil, &c, message)

	// Officer and sergeant talk to each other.
	to := w.officerUserID(ctx, rec.OfficerID)
	if actor.OfficerID == rec.OfficerID {
		to = rec.ResponsibleSergeantID
	}
	w.notify(ctx, actor, rec, fmt.Sprintf("%s commented on the leave of %s on %s",
		actor.Name, rec.Snapshot.Name, rec.Date), to)
	return &c, nil
}

// =============================================================================
// READERS
// =============================================================================

func (w *Workflow) Get(ctx context.Context, leaveID string) (*Record, error) {
	return w.Repo.GetLeave(ctx, leaveID)
}

func (w *Workflow) List(ctx context.Context, filter Filter) ([]Record, error) {
	return w.Repo.ListLeaves(ctx, filter)
}

func (w *Workflow) ListComments(ctx context.Context, leaveID string) ([]Comment, error) {
	if _, err := w.Repo.GetLeave(ctx, leaveID); err != nil {
		return nil, err
	}
	return w.Comments.Comments(ctx, leaveID)
}

func (w *Workflow) ListHistory(ctx context.Context, leaveID string) ([]generic.HistoryEntry, error) {
	if _, err := w.Repo.GetLeave(ctx, leaveID); err != nil {
		return nil, err
	}
	if w.History == nil {
		return nil, nil
	}
	return w.History.History(ctx, leaveID)
}

// Balance returns the current balance of officerID for year.
func (w *Workflow) Balance(ctx context.Context, officerID string, year int) (Balance, error) {
	bc := &BalanceCalculator{Ledger: w.Repo, Leaves: w.Repo}
	return bc.Balance(ctx, officerID, year)
}

// =============================================================================
// TRANSITION PROTOCOL
// =============================================================================

type mutation struct {
	op     Operation
	kind   generic.HistoryKind
	motive string

	// validate checks the input alone, once the state is known to allow op.
	validate func() error

	// precheck runs against a pre-read copy, outside the transaction, for
	// checks that read other records.
	precheck func(ctx context.Context, r Record) error

	// apply mutates the freshly read record inside the transaction.
	apply func(r *Record) error
}

func (w *Workflow) transition(ctx context.Context, actor generic.Actor, leaveID string, m mutation) (*Record, error) {
	// 1. Role
	if !RolePermits(actor.Role, m.op) {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: string(m.op)}
	}

	// 2. State, before input
	current, err := w.Repo.GetLeave(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	if !StateAllows(m.op, current.State()) {
		return nil, stateConflict(current, m.op, nil)
	}

	// 3. Input and pre-check
	if m.validate != nil {
		if err := m.validate(); err != nil {
			return nil, err
		}
	}
	if m.precheck != nil {
		if err := m.precheck(ctx, *current); err != nil {
			return nil, err
		}
	}

	// 4. Read, check, apply, swap
	var before, after Record
	err = w.Repo.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetLeave(ctx, leaveID)
		if err != nil {
			return err
		}
		if !StateAllows(m.op, current.State()) {
			return stateConflict(current, m.op, nil)
		}

		before = *current
		next := *current
		if err := m.apply(&next); err != nil {
			return err
		}
		next.UpdatedAt = w.Clock.Now()
		next.UpdatedByActorID = actor.ID
		next.Version = before.Version + 1

		if err := repo.UpdateLeave(ctx, next, before.Version); err != nil {
			if errors.Is(err, generic.ErrConcurrentModification) {
				return stateConflict(&before, m.op, err)
			}
			return err
		}
		after = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 5. Side effects
	w.record(ctx, actor, m.kind, &before, &after, m.motive)
	w.log().Info("leave transition",
		zap.String("leave_id", after.ID),
		zap.String("op", string(m.op)),
		zap.String("from", before.State().String()),
		zap.String("to", after.State().String()),
		zap.String("actor_id", actor.ID))
	return &after, nil
}

func stateConflict(r *Record, op Operation, cause error) error {
	return &generic.StateConflictError{
		SubjectID: r.ID,
		Operation: string(op),
		Current:   r.State().String(),
		Err:       cause,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (w *Workflow) checkConflict(ctx context.Context, officerID string, day generic.Date, excludeID string) error {
	if w.Conflicts == nil {
		return nil
	}
	return w.Conflicts.CheckLeave(ctx, officerID, day, excludeID)
}

func (w *Workflow) record(ctx context.Context, actor generic.Actor, kind generic.HistoryKind, before, after any, motive string) {
	if w.History == nil {
		return
	}
	entry := generic.HistoryEntry{
		ID:        w.newID(),
		Kind:      kind,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Motive:    motive,
		At:        w.Clock.Now(),
	}
	switch v := after.(type) {
	case *Record:
		entry.SubjectID = v.ID
	case *Comment:
		entry.SubjectID = v.LeaveID
	}
	if r, ok := before.(*Record); ok && r != nil {
		entry.Before = generic.Snapshot(r)
	}
	entry.After = generic.Snapshot(after)

	if err := w.History.Record(ctx, entry); err != nil {
		w.log().Warn("failed to record history",
			zap.String("subject_id", entry.SubjectID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// notify sends message to each distinct non-empty user id other than the
// actor's own account.
func (w *Workflow) notify(ctx context.Context, actor generic.Actor, rec *Record, message string, userIDs ...string) {
	if w.Notifier == nil {
		return
	}
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || id == actor.ID || seen[id] {
			continue
		}
		seen[id] = true
		n := generic.Notification{
			ID:        w.newID(),
			UserID:    id,
			Message:   message,
			Link:      "/leaves/" + rec.ID,
			CreatedAt: w.Clock.Now(),
		}
		if err := w.Notifier.Notify(ctx, n); err != nil {
			w.log().Warn("failed to notify",
				zap.String("leave_id", rec.ID),
				zap.String("user_id", id),
				zap.Error(err))
		}
	}
}

// officerUserID returns the account linked to officerID, or "" if none.
func (w *Workflow) officerUserID(ctx context.Context, officerID string) string {
	u, err := w.Directory.FindUserByOfficerID(ctx, officerID)
	if err != nil {
		w.log().Warn("failed to resolve officer account", zap.String("officer_id", officerID), zap.Error(err))
		return ""
	}
	if u == nil {
		return ""
	}
	return u.ID
}

func (w *Workflow) newID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return generic.NewID()
}

func (w *Workflow) log() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

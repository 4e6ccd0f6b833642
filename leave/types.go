// Package leave implements the day-off ("Folga") request lifecycle: the
// two-stage sergeant/admin approval workflow, the status lifecycle of a
// validated record, and the credit balance that gates new requests.
package leave

import (
	"slices"
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// APPROVAL AXIS
// =============================================================================

type Approval string

const (
	ApprovalDraft              Approval = "DRAFT"
	ApprovalSentToSergeant     Approval = "SENT_TO_SERGEANT"
	ApprovalApprovedBySergeant Approval = "APPROVED_BY_SERGEANT"
	ApprovalDeniedBySergeant   Approval = "DENIED_BY_SERGEANT"
	ApprovalValidatedByAdmin   Approval = "VALIDATED_BY_ADMIN"
	ApprovalRejectedByAdmin    Approval = "REJECTED_BY_ADMIN"
)

// Approvals lists every approval value in pipeline order.
var Approvals = []Approval{
	ApprovalDraft,
	ApprovalSentToSergeant,
	ApprovalApprovedBySergeant,
	ApprovalDeniedBySergeant,
	ApprovalValidatedByAdmin,
	ApprovalRejectedByAdmin,
}

// Terminal reports whether no further approval transition is possible.
func (a Approval) Terminal() bool {
	return a == ApprovalDeniedBySergeant || a == ApprovalRejectedByAdmin
}

func (a Approval) Valid() bool { return slices.Contains(Approvals, a) }

// =============================================================================
// STATUS AXIS
// =============================================================================

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExchanged Status = "EXCHANGED"
	StatusDeleted   Status = "DELETED"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []Status{StatusActive, StatusExchanged, StatusDeleted, StatusCancelled}

func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

// State is the pair of axes a transition precondition is evaluated against.
type State struct {
	Approval Approval
	Status   Status
}

func (s State) String() string {
	return string(s.Approval) + "/" + string(s.Status)
}

// =============================================================================
// LEAVE RECORD
// =============================================================================

// OfficerSnapshot is the officer data as it was when the leave was requested.
// It is kept on purpose: a later transfer of the officer to another platoon
// must not move their past requests.
type OfficerSnapshot struct {
	Name         string `json:"name"`
	Registration string `json:"registration"`
	Platoon      string `json:"platoon"`
}

// Record is a single day-off request.
//
// INVARIANTS:
//   - Approval and Status change only through Workflow transitions.
//   - ExchangedToDate != nil  <=>  Status == StatusExchanged.
//   - Reason is fixed at creation; ReasonText starts as Reason.Text() and is
//     replaced by the motive given on exchange or delete.
//
// Optional actor references are empty strings when unset.
type Record struct {
	ID                    string          `json:"id"`
	OfficerID             string          `json:"officer_id"`
	Snapshot              OfficerSnapshot `json:"snapshot"`
	Date                  generic.Date    `json:"date"`
	Status                Status          `json:"status"`
	Approval              Approval        `json:"approval"`
	Reason                Reason          `json:"reason"`
	ReasonText            string          `json:"reason_text"`
	CreatedByActorID      string          `json:"created_by"`
	ResponsibleSergeantID string          `json:"responsible_sergeant_id,omitempty"`
	SergeantID            string          `json:"sergeant_id,omitempty"`
	AdminID               string          `json:"admin_id,omitempty"`
	ExchangedToDate       *generic.Date   `json:"exchanged_to_date"`
	SergeantOpinion       string          `json:"sergeant_opinion,omitempty"`
	AdminOpinion          string          `json:"admin_opinion,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	UpdatedByActorID      string          `json:"updated_by"`
	Version               int             `json:"version"`
}

func (r Record) State() State {
	return State{Approval: r.Approval, Status: r.Status}
}

// ConsumesCredit reports whether the record takes one unit from the officer's
// yearly balance: validated, active, and of the general-commander category.
func (r Record) ConsumesCredit() bool {
	return r.Approval == ApprovalValidatedByAdmin &&
		r.Status == StatusActive &&
		r.Reason.ConsumesCredit()
}

// OccupiesDay reports whether the record blocks its date for other
// commitments of the officer.
func (r Record) OccupiesDay() bool {
	return r.Status == StatusActive && !r.Approval.Terminal()
}

// =============================================================================
// COMMENT
// =============================================================================

// Comment is an append-only message on a leave record.
type Comment struct {
	ID            string    `json:"id"`
	LeaveID       string    `json:"leave_id"`
	AuthorActorID string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorRank    string    `json:"author_rank"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// =============================================================================
// FILTER
// =============================================================================

// Filter selects leave records. Zero fields do not constrain.
type Filter struct {
	OfficerID string
	Platoon   string
	Year      int
	From      generic.Date
	To        generic.Date
	Approvals []Approval
	Statuses  []Status
}

// Match applies the filter in memory. Stores may push it down to queries
// but must return the same set.
func (f Filter) Match(r Record) bool {
	if f.OfficerID != "" && r.OfficerID != f.OfficerID {
		return false
	}
	if f.Platoon != "" && r.Snapshot.Platoon != f.Platoon {
		return false
	}
	if f.Year != 0 && r.Date.Year() != f.Year {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	if len(f.Approvals) > 0 && !slices.Contains(f.Approvals, r.Approval) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	return true
}

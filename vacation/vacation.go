/*
Package vacation manages vacation blocks ("Férias").

PURPOSE:
  A vacation is a 15- or 30-day block of consecutive days taken against a
  reference year. An officer holds at most 30 days per reference year,
  either as one 30-day block or as two 15-day blocks.

DURATION AVAILABILITY:
  held(o, y)  = Σ DurationDays of o's non-cancelled periods for year y
  offered     = { d ∈ {15, 30} : held + d <= 30 }

    held 0  → {15, 30}
    held 15 → {15}
    held 30 → {}

  Completed and change-requested periods still count: the days were (or
  are about to be) taken. Only a cancelled period frees its days.

LIFECYCLE:
  SCHEDULED ──request change──▶ CHANGE_REQUESTED ──reschedule──▶ SCHEDULED
  SCHEDULED ──(end date passed, sweep)──▶ COMPLETED
  SCHEDULED | CHANGE_REQUESTED ──cancel──▶ CANCELLED

SEE ALSO:
  - service.go: the operations
  - conflict/checker.go: overlap checks against leaves and other vacations
*/
package vacation

import (
	"context"
	"slices"
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

type Status string

const (
	StatusScheduled       Status = "SCHEDULED"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
	StatusChangeRequested Status = "CHANGE_REQUESTED"
)

// Durations are the block lengths an officer may take, in days.
var Durations = []int{15, 30}

// MaxDaysPerYear is the yearly quota.
const MaxDaysPerYear = 30

// Period is one vacation block.
type Period struct {
	ID               string       `json:"id"`
	OfficerID        string       `json:"officer_id"`
	OfficerName      string       `json:"officer_name"`
	ReferenceYear    int          `json:"reference_year"`
	StartDate        generic.Date `json:"start_date"`
	EndDate          generic.Date `json:"end_date"`
	DurationDays     int          `json:"duration_days"`
	Status           Status       `json:"status"`
	ChangeReason     string       `json:"change_reason,omitempty"`
	CreatedByActorID string       `json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Span returns the inclusive day range of the block.
func (p Period) Span() generic.Period {
	return generic.Period{Start: p.StartDate, End: p.EndDate}
}

// Holds reports whether the period counts against the yearly quota.
func (p Period) Holds() bool {
	return p.Status != StatusCancelled
}

// Booked reports whether the period blocks the officer's calendar.
func (p Period) Booked() bool {
	return p.Status == StatusScheduled || p.Status == StatusChangeRequested
}

// EndDateFor returns start + duration - 1.
func EndDateFor(start generic.Date, durationDays int) generic.Date {
	return generic.PeriodOfDays(start, durationDays).End
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// Availability is the outcome of the duration-availability rule.
type Availability struct {
	OfficerID     string `json:"officer_id"`
	ReferenceYear int    `json:"reference_year"`
	HeldDays      int    `json:"held_days"`
	Offered       []int  `json:"offered"`
}

// Offers reports whether duration may still be scheduled.
func (a Availability) Offers(duration int) bool {
	return slices.Contains(a.Offered, duration)
}

// Available applies the duration-availability rule to the periods of one
// officer and reference year. excludeID lets a period being rescheduled
// ignore itself.
func Available(officerID string, year int, periods []Period, excludeID string) Availability {
	held := 0
	for _, p := range periods {
		if p.OfficerID != officerID || p.ReferenceYear != year || p.ID == excludeID {
			continue
		}
		if p.Holds() {
			held += p.DurationDays
		}
	}

	offered := []int{}
	for _, d := range Durations {
		if held+d <= MaxDaysPerYear {
			offered = append(offered, d)
		}
	}
	return Availability{OfficerID: officerID, ReferenceYear: year, HeldDays: held, Offered: offered}
}

// =============================================================================
// STORE
// =============================================================================

// Filter selects vacation periods. Zero fields do not constrain.
type Filter struct {
	OfficerID     string
	ReferenceYear int
	Statuses      []Status
	EndsBefore    generic.Date
}

// Store persists vacation periods.
type Store interface {
	GetVacation(ctx context.Context, id string) (*Period, error)
	ListVacations(ctx context.Context, filter Filter) ([]Period, error)
	CreateVacation(ctx context.Context, p Period) error
	UpdateVacation(ctx context.Context, p Period) error
}

// Tx is a Store bound to one transaction, together with conflict checks
// that read through the same transaction.
type Tx interface {
	Store
	ConflictChecker
}

// TxStore runs fn atomically. Schedule and Reschedule read the quota and
// the calendar and write the period inside one call.
type TxStore interface {
	WithVacationTx(ctx context.Context, fn func(tx Tx) error) error
}

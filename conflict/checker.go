/*
checker.go - Cross-commitment conflict detection

PURPOSE:
  An officer cannot be in two places at once. Before a leave, a vacation or
  an event is committed, the checker asks every commitment source whether
  the officer is already booked on the affected days.

  ┌──────────────┬──────────────────────────────────────────────────────┐
  │ Check        │ Blocks on                                            │
  ├──────────────┼──────────────────────────────────────────────────────┤
  │ CheckLeave   │ vacation covering the day, active leave on the day   │
  │ CheckVacation│ vacation overlapping the range, active leave in it   │
  │ CheckEvent   │ vacation covering the day, active leave, other event │
  └──────────────┴──────────────────────────────────────────────────────┘

  "Active leave" means Status ACTIVE with a non-terminal approval: a denied
  or rejected request no longer occupies the day.

RESULT:
  The first conflict found, as *generic.ConflictError. Sources are asked in
  a fixed order (vacation, leave, event) so the reported kind is
  deterministic for a single officer.

SEE ALSO:
  - store/sqlite/conflict.go: the source queries
*/
package conflict

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/leave-engine/generic"
)

// Commitment is a booked span of an officer's calendar.
type Commitment struct {
	ID        string
	OfficerID string
	Kind      generic.CommitmentKind
	Period    generic.Period
}

// =============================================================================
// SOURCES
// =============================================================================

// VacationSource lists the non-cancelled vacations of an officer that
// overlap p.
type VacationSource interface {
	VacationsOverlapping(ctx context.Context, officerID string, p generic.Period) ([]Commitment, error)
}

// LeaveSource lists the ACTIVE, non-terminal leaves of an officer dated
// inside p.
type LeaveSource interface {
	ActiveLeavesBetween(ctx context.Context, officerID string, p generic.Period) ([]Commitment, error)
}

// EventSource lists the events on day that include the officer.
type EventSource interface {
	EventsOn(ctx context.Context, officerID string, day generic.Date) ([]Commitment, error)
}

// =============================================================================
// CHECKER
// =============================================================================

// Checker runs conflict checks. A nil source is treated as empty.
type Checker struct {
	Vacations VacationSource
	Leaves    LeaveSource
	Events    EventSource

	// MaxConcurrency bounds CheckParticipants. 0 means 8.
	MaxConcurrency int

	Logger *zap.Logger
}

// NewChecker returns a checker over a store implementing all three sources.
func NewChecker[S interface {
	VacationSource
	LeaveSource
	EventSource
}](s S, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{Vacations: s, Leaves: s, Events: s, Logger: logger.Named("conflict")}
}

// CheckLeave reports whether officerID is free on day for a leave.
// excludeLeaveID lets a restored record ignore itself.
func (c *Checker) CheckLeave(ctx context.Context, officerID string, day generic.Date, excludeLeaveID string) error {
	p := generic.SingleDay(day)
	if err := c.checkVacations(ctx, officerID, p, ""); err != nil {
		return err
	}
	return c.checkLeaves(ctx, officerID, p, excludeLeaveID)
}

// CheckVacation reports whether officerID is free for the whole of p.
func (c *Checker) CheckVacation(ctx context.Context, officerID string, p generic.Period, excludeVacationID string) error {
	if !p.Valid() {
		return generic.Invalid("period", "end %s is before start %s", p.End, p.Start)
	}
	if err := c.checkVacations(ctx, officerID, p, excludeVacationID); err != nil {
		return err
	}
	return c.checkLeaves(ctx, officerID, p, "")
}

// CheckEvent reports whether officerID is free to attend an event on day.
func (c *Checker) CheckEvent(ctx context.Context, officerID string, day generic.Date, excludeEventID string) error {
	p := generic.SingleDay(day)
	if err := c.checkVacations(ctx, officerID, p, ""); err != nil {
		return err
	}
	if err := c.checkLeaves(ctx, officerID, p, ""); err != nil {
		return err
	}
	if c.Events == nil {
		return nil
	}
	events, err := c.Events.EventsOn(ctx, officerID, day)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	return firstConflict(officerID, events, excludeEventID, p)
}

// CheckParticipants runs CheckEvent for every officer concurrently and
// returns the first conflict (or store error) encountered. Remaining
// lookups are cancelled once one fails.
func (c *Checker) CheckParticipants(ctx context.Context, officerIDs []string, day generic.Date, excludeEventID string) error {
	limit := c.MaxConcurrency
	if limit <= 0 {
		limit = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range officerIDs {
		g.Go(func() error {
			return c.CheckEvent(gctx, id, day, excludeEventID)
		})
	}
	err := g.Wait()
	if err != nil && c.Logger != nil {
		c.Logger.Debug("participant conflict",
			zap.String("date", day.String()),
			zap.Int("participants", len(officerIDs)),
			zap.Error(err))
	}
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Checker) checkVacations(ctx context.Context, officerID string, p generic.Period, excludeID string) error {
	if c.Vacations == nil {
		return nil
	}
	found, err := c.Vacations.VacationsOverlapping(ctx, officerID, p)
	if err != nil {
		return fmt.Errorf("failed to load vacations: %w", err)
	}
	return firstConflict(officerID, found, excludeID, p)
}

func (c *Checker) checkLeaves(ctx context.Context, officerID string, p generic.Period, excludeID string) error {
	if c.Leaves == nil {
		return nil
	}
	found, err := c.Leaves.ActiveLeavesBetween(ctx, officerID, p)
	if err != nil {
		return fmt.Errorf("failed to load leaves: %w", err)
	}
	return firstConflict(officerID, found, excludeID, p)
}

func firstConflict(officerID string, found []Commitment, excludeID string, p generic.Period) error {
	for _, cm := range found {
		if cm.ID == excludeID && excludeID != "" {
			continue
		}
		if !cm.Period.Overlaps(p) {
			continue
		}
		// Report the first day both spans share.
		day := cm.Period.Start
		if day.Before(p.Start) {
			day = p.Start
		}
		return &generic.ConflictError{
			OfficerID: officerID,
			Date:      day,
			Kind:      cm.Kind,
			RecordID:  cm.ID,
		}
	}
	return nil
}

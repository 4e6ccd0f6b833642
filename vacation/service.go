package vacation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// ConflictChecker reports whether an officer is free for the whole period.
type ConflictChecker interface {
	CheckVacation(ctx context.Context, officerID string, p generic.Period, excludeVacationID string) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store     Store
	Directory generic.Directory
	Conflicts ConflictChecker
	Notifier  generic.Notifier
	History   generic.HistoryLog
	Clock     generic.Clock
	NewID     func() string
	Logger    *zap.Logger
}

// ScheduleInput is a new vacation block.
type ScheduleInput struct {
	OfficerID     string
	ReferenceYear int
	StartDate     generic.Date
	DurationDays  int
}

// SystemActor performs the completion sweep.
var SystemActor = generic.Actor{ID: "system", Name: "scheduler", Role: generic.RoleAdmin}

// Schedule books a vacation block for an officer.
func (s *Service) Schedule(ctx context.Context, actor generic.Actor, in ScheduleInput) (*Period, error) {
	if actor.Role != generic.RoleAdmin && actor.Role != generic.RoleSergeant {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "schedule vacation"}
	}
	if strings.TrimSpace(in.OfficerID) == "" {
		return nil, generic.Invalid("officer_id", "is required")
	}
	if in.ReferenceYear < 1900 || in.ReferenceYear > 9999 {
		return nil, generic.Invalid("reference_year", "%d is out of range", in.ReferenceYear)
	}
	if in.StartDate.IsZero() {
		return nil, generic.Invalid("start_date", "is required")
	}
	if in.StartDate.Before(s.Clock.Today()) {
		return nil, generic.Invalid("start_date", "%s is in the past", in.StartDate)
	}
	if !slices.Contains(Durations, in.DurationDays) {
		return nil, generic.Invalid("duration_days", "must be 15 or 30")
	}

	officer, err := s.Directory.FindOfficer(ctx, in.OfficerID)
	if err != nil {
		if generic.IsNotFound(err) {
			return nil, generic.Invalid("officer_id", "officer %s not found", in.OfficerID)
		}
		return nil, fmt.Errorf("failed to load officer: %w", err)
	}
	if !officer.Active {
		return nil, generic.Invalid("officer_id", "officer %s is inactive", in.OfficerID)
	}

	now := s.Clock.Now()
	p := Period{
		ID:               s.newID(),
		OfficerID:        officer.ID,
		OfficerName:      officer.Name,
		ReferenceYear:    in.ReferenceYear,
		StartDate:        in.StartDate,
		EndDate:          EndDateFor(in.StartDate, in.DurationDays),
		DurationDays:     in.DurationDays,
		Status:           StatusScheduled,
		CreatedByActorID: actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err = s.atomically(ctx, func(tx Tx) error {
		avail, err := availability(ctx, tx, officer.ID, in.ReferenceYear)
		if err != nil {
			return err
		}
		if !avail.Offers(in.DurationDays) {
			return generic.Invalid("duration_days",
				"%d days not available for %d (%d already held)", in.DurationDays, in.ReferenceYear, avail.HeldDays)
		}
		if err := tx.CheckVacation(ctx, p.OfficerID, p.Span(), ""); err != nil {
			return err
		}
		if err := tx.CreateVacation(ctx, p); err != nil {
			return fmt.Errorf("failed to create vacation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, actor, generic.HistoryVacationScheduled, nil, &p, "",
		fmt.Sprintf("Vacation scheduled from %s to %s", p.StartDate, p.EndDate))
	return &p, nil
}

// RequestChange flags a scheduled block for rescheduling. The owning
// officer may ask, as may any sergeant or admin.
func (s *Service) RequestChange(ctx context.Context, actor generic.Actor, id, reason string) (*Period, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, generic.Invalid("reason", "is required")
	}
	p, err := s.Store.GetVacation(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == generic.RoleSubordinate && actor.OfficerID != p.OfficerID {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "request change of another officer's vacation"}
	}
	if p.Status != StatusScheduled {
		return nil, s.stateConflict(p, "request change")
	}

	before := *p
	p.Status = StatusChangeRequested
	p.ChangeReason = reason
	p.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateVacation(ctx, *p); err != nil {
		return nil, fmt.Errorf("failed to update vacation: %w", err)
	}

	s.after(ctx, actor, generic.HistoryVacationChanged, &before, p, reason, "")
	return p, nil
}

// Reschedule moves a block to a new start date, keeping its duration.
func (s *Service) Reschedule(ctx context.Context, actor generic.Actor, id string, newStart generic.Date) (*Period, error) {
	if actor.Role != generic.RoleAdmin {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "reschedule vacation"}
	}
	if newStart.IsZero() {
		return nil, generic.Invalid("start_date", "is required")
	}
	if newStart.Before(s.Clock.Today()) {
		return nil, generic.Invalid("start_date", "%s is in the past", newStart)
	}
	var before, p Period
	err := s.atomically(ctx, func(tx Tx) error {
		current, err := tx.GetVacation(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusScheduled && current.Status != StatusChangeRequested {
			return s.stateConflict(current, "reschedule")
		}

		before, p = *current, *current
		p.StartDate = newStart
		p.EndDate = EndDateFor(newStart, p.DurationDays)
		if err := tx.CheckVacation(ctx, p.OfficerID, p.Span(), p.ID); err != nil {
			return err
		}
		p.Status = StatusScheduled
		p.ChangeReason = ""
		p.UpdatedAt = s.Clock.Now()
		if err := tx.UpdateVacation(ctx, p); err != nil {
			return fmt.Errorf("failed to update vacation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.after(ctx, actor, generic.HistoryVacationReschedule, &before, &p, before.ChangeReason,
		fmt.Sprintf("Vacation moved to %s - %s", p.StartDate, p.EndDate))
	return &p, nil
}

// Cancel frees a block and its days of quota.
func (s *Service) Cancel(ctx context.Context, actor generic.Actor, id, reason string) (*Period, error) {
	if actor.Role != generic.RoleAdmin {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "cancel vacation"}
	}
	p, err := s.Store.GetVacation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Booked() {
		return nil, s.stateConflict(p, "cancel")
	}

	before := *p
	p.Status = StatusCancelled
	p.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateVacation(ctx, *p); err != nil {
		return nil, fmt.Errorf("failed to update vacation: %w", err)
	}

	s.after(ctx, actor, generic.HistoryVacationCancelled, &before, p, strings.TrimSpace(reason),
		fmt.Sprintf("Vacation from %s to %s cancelled", p.StartDate, p.EndDate))
	return p, nil
}

// CompleteDue marks every scheduled block that ended before today as
// completed and returns how many were updated.
func (s *Service) CompleteDue(ctx context.Context) (int, error) {
	due, err := s.Store.ListVacations(ctx, Filter{
		Statuses:   []Status{StatusScheduled},
		EndsBefore: s.Clock.Today(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list due vacations: %w", err)
	}

	completed := 0
	for i := range due {
		p := due[i]
		before := p
		p.Status = StatusCompleted
		p.UpdatedAt = s.Clock.Now()
		if err := s.Store.UpdateVacation(ctx, p); err != nil {
			return completed, fmt.Errorf("failed to complete vacation %s: %w", p.ID, err)
		}
		completed++
		s.after(ctx, SystemActor, generic.HistoryVacationCompleted, &before, &p, "", "")
	}
	if completed > 0 {
		s.log().Info("vacations completed", zap.Int("count", completed))
	}
	return completed, nil
}

// Availability returns the durations officerID may still schedule for year.
func (s *Service) Availability(ctx context.Context, officerID string, year int) (Availability, error) {
	return availability(ctx, s.Store, officerID, year)
}

func availability(ctx context.Context, store Store, officerID string, year int) (Availability, error) {
	periods, err := store.ListVacations(ctx, Filter{OfficerID: officerID, ReferenceYear: year})
	if err != nil {
		return Availability{}, fmt.Errorf("failed to list vacations: %w", err)
	}
	return Available(officerID, year, periods, ""), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Period, error) {
	return s.Store.GetVacation(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Period, error) {
	return s.Store.ListVacations(ctx, filter)
}

// =============================================================================
// HELPERS
// =============================================================================

// atomically runs fn in a transaction when the store supports one.
func (s *Service) atomically(ctx context.Context, fn func(tx Tx) error) error {
	if ts, ok := s.Store.(TxStore); ok {
		return ts.WithVacationTx(ctx, fn)
	}
	return fn(struct {
		Store
		ConflictChecker
	}{s.Store, s.Conflicts})
}

func (s *Service) stateConflict(p *Period, op string) error {
	return &generic.StateConflictError{SubjectID: p.ID, Operation: op, Current: string(p.Status)}
}

// after records history and, when message is set, notifies the officer.
func (s *Service) after(ctx context.Context, actor generic.Actor, kind generic.HistoryKind, before, after *Period, motive, message string) {
	log := s.log().With(zap.String("vacation_id", after.ID), zap.String("kind", string(kind)))

	if s.History != nil {
		entry := generic.HistoryEntry{
			ID:        s.newID(),
			Kind:      kind,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			SubjectID: after.ID,
			After:     generic.Snapshot(after),
			Motive:    motive,
			At:        s.Clock.Now(),
		}
		if before != nil {
			entry.Before = generic.Snapshot(before)
		}
		if err := s.History.Record(ctx, entry); err != nil {
			log.Warn("failed to record history", zap.Error(err))
		}
	}

	if message == "" || s.Notifier == nil {
		return
	}
	u, err := s.Directory.FindUserByOfficerID(ctx, after.OfficerID)
	if err != nil {
		log.Warn("failed to resolve officer account", zap.Error(err))
		return
	}
	if u == nil || u.ID == actor.ID {
		return
	}
	err = s.Notifier.Notify(ctx, generic.Notification{
		ID:        s.newID(),
		UserID:    u.ID,
		Message:   message,
		Link:      "/vacations/" + after.ID,
		CreatedAt: s.Clock.Now(),
	})
	if err != nil {
		log.Warn("failed to notify", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return generic.NewID()
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

package schedule

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
)

// ConflictChecker checks all participants of an event at once.
type ConflictChecker interface {
	CheckParticipants(ctx context.Context, officerIDs []string, day generic.Date, excludeEventID string) error
}

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

// CreateInput is a new agenda entry.
type CreateInput struct {
	Type                  Type
	Title                 string
	Date                  generic.Date
	StartTime             string
	EndTime               string
	Location              string
	Description           string
	ParticipantOfficerIDs []string
}

// Create validates and stores an event, then notifies every participant.
func (s *Service) Create(ctx context.Context, actor generic.Actor, in CreateInput) (*Event, error) {
	if actor.Role != generic.RoleAdmin && actor.Role != generic.RoleSergeant {
		return nil, &generic.PermissionError{Role: actor.Role, Operation: "create event"}
	}

	// 1. Input
	if !in.Type.Valid() {
		return nil, generic.Invalid("type", "unknown event type %q", in.Type)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, generic.Invalid("title", "is required")
	}
	if in.Date.IsZero() {
		return nil, generic.Invalid("date", "is required")
	}
	start, err := generic.ParseClockTime(in.StartTime)
	if err != nil {
		return nil, generic.Invalid("start_time", "%v", err)
	}
	end, err := generic.ParseClockTime(in.EndTime)
	if err != nil {
		return nil, generic.Invalid("end_time", "%v", err)
	}
	if end <= start {
		return nil, generic.Invalid("end_time", "must be after start_time")
	}
	participants := dedupe(in.ParticipantOfficerIDs)
	if len(participants) == 0 {
		return nil, generic.Invalid("participant_officer_ids", "at least one participant is required")
	}

	// 2. Participants must be active officers
	for _, id := range participants {
		o, err := s.Directory.FindOfficer(ctx, id)
		if err != nil {
			if generic.IsNotFound(err) {
				return nil, generic.Invalid("participant_officer_ids", "officer %s not found", id)
			}
			return nil, fmt.Errorf("failed to load officer: %w", err)
		}
		if !o.Active {
			return nil, generic.Invalid("participant_officer_ids", "officer %s is inactive", id)
		}
	}

	// 3. Calendar
	if err := s.Conflicts.CheckParticipants(ctx, participants, in.Date, ""); err != nil {
		return nil, err
	}

	e := Event{
		ID:                    s.newID(),
		Type:                  in.Type,
		Title:                 title,
		Date:                  in.Date,
		StartTime:             in.StartTime,
		EndTime:               in.EndTime,
		Location:              strings.TrimSpace(in.Location),
		Description:           strings.TrimSpace(in.Description),
		ParticipantOfficerIDs: participants,
		CreatedByActorID:      actor.ID,
		CreatedAt:             s.Clock.Now(),
	}
	if err := s.Store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.record(ctx, actor, generic.HistoryEventCreated, nil, &e)
	s.notifyParticipants(ctx, actor, e, fmt.Sprintf("You were scheduled for %s on %s (%s-%s)",
		e.Title, e.Date, e.StartTime, e.EndTime))
	s.log().Info("event created",
		zap.String("event_id", e.ID),
		zap.String("date", e.Date.String()),
		zap.Int("participants", len(participants)))
	return &e, nil
}

// Delete removes an event. Participants are told it was cancelled.
func (s *Service) Delete(ctx context.Context, actor generic.Actor, id string) error {
	if actor.Role != generic.RoleAdmin {
		return &generic.PermissionError{Role: actor.Role, Operation: "delete event"}
	}
	e, err := s.Store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.record(ctx, actor, generic.HistoryEventDeleted, e, nil)
	s.notifyParticipants(ctx, actor, *e, fmt.Sprintf("%s on %s was cancelled", e.Title, e.Date))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.Store.GetEvent(ctx, id)
}

// List returns events dated in [from, to].
func (s *Service) List(ctx context.Context, from, to generic.Date) ([]Event, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, generic.Invalid("to", "must not be before from")
	}
	return s.Store.ListEvents(ctx, from, to)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) record(ctx context.Context, actor generic.Actor, kind generic.HistoryKind, before, after *Event) {
	if s.History == nil {
		return
	}
	entry := generic.HistoryEntry{
		ID:        s.newID(),
		Kind:      kind,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		At:        s.Clock.Now(),
	}
	if before != nil {
		entry.SubjectID = before.ID
		entry.Before = generic.Snapshot(before)
	}
	if after != nil {
		entry.SubjectID = after.ID
		entry.After = generic.Snapshot(after)
	}
	if err := s.History.Record(ctx, entry); err != nil {
		s.log().Warn("failed to record history", zap.String("event_id", entry.SubjectID), zap.Error(err))
	}
}

func (s *Service) notifyParticipants(ctx context.Context, actor generic.Actor, e Event, message string) {
	if s.Notifier == nil {
		return
	}
	for _, officerID := range e.ParticipantOfficerIDs {
		u, err := s.Directory.FindUserByOfficerID(ctx, officerID)
		if err != nil {
			s.log().Warn("failed to resolve officer account", zap.String("officer_id", officerID), zap.Error(err))
			continue
		}
		if u == nil || u.ID == actor.ID {
			continue
		}
		err = s.Notifier.Notify(ctx, generic.Notification{
			ID:        s.newID(),
			UserID:    u.ID,
			Message:   message,
			Link:      "/events/" + e.ID,
			CreatedAt: s.Clock.Now(),
		})
		if err != nil {
			s.log().Warn("failed to notify", zap.String("event_id", e.ID), zap.String("user_id", u.ID), zap.Error(err))
		}
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
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

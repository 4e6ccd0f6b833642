/*
Package schedule manages the unit agenda ("Agenda"): courses, training,
operations and other one-day events with a list of participating officers.

CONFLICTS:
  Every participant must be free on the event date: no booked vacation
  covering it, no active leave on it, and no other event on the same day.
  Participants are checked concurrently; the first conflict found is
  reported.
*/
package schedule

import (
	"context"
	"slices"
	"time"

	"github.com/warp/leave-engine/generic"
)

type Type string

const (
	TypeCourse       Type = "COURSE"
	TypeEAP          Type = "EAP" // periodic training stage
	TypeOperation    Type = "OPERATION"
	TypePremiumLeave Type = "PREMIUM_LEAVE"
	TypeOther        Type = "OTHER"
)

var Types = []Type{TypeCourse, TypeEAP, TypeOperation, TypePremiumLeave, TypeOther}

func (t Type) Valid() bool { return slices.Contains(Types, t) }

// Event is one agenda entry.
type Event struct {
	ID                    string       `json:"id"`
	Type                  Type         `json:"type"`
	Title                 string       `json:"title"`
	Date                  generic.Date `json:"date"`
	StartTime             string       `json:"start_time"`
	EndTime               string       `json:"end_time"`
	Location              string       `json:"location,omitempty"`
	Description           string       `json:"description,omitempty"`
	ParticipantOfficerIDs []string     `json:"participant_officer_ids"`
	CreatedByActorID      string       `json:"created_by"`
	CreatedAt             time.Time    `json:"created_at"`
}

// Includes reports whether officerID takes part in the event.
func (e Event) Includes(officerID string) bool {
	return slices.Contains(e.ParticipantOfficerIDs, officerID)
}

// Store persists events. Deletion is physical.
type Store interface {
	GetEvent(ctx context.Context, id string) (*Event, error)
	// ListEvents returns events dated in [from, to]; zero bounds are open.
	ListEvents(ctx context.Context, from, to generic.Date) ([]Event, error)
	CreateEvent(ctx context.Context, e Event) error
	DeleteEvent(ctx context.Context, id string) error
}

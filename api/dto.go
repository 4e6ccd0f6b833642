/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Composite response wrappers

VALIDATION:
  Request types carry validator tags checked by decode(). The tags cover
  shape only (required, format, enum); the domain services make the
  semantic checks (past dates, balance, conflicts, role rules).

SEE ALSO:
  - handlers.go: Uses these types
  - factory/reason.go: ReasonJSON, the wire form of a leave reason
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/schedule"
	"github.com/warp/leave-engine/vacation"
)

// =============================================================================
// DIRECTORY
// =============================================================================

type OfficerDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Registration string `json:"registration,omitempty"`
	Rank         string `json:"rank,omitempty"`
	Platoon      string `json:"platoon"`
	Active       bool   `json:"active"`
}

type SaveOfficerRequest struct {
	ID           string `json:"id" validate:"max=64"`
	Name         string `json:"name" validate:"required,max=120"`
	Registration string `json:"registration" validate:"max=30"`
	Rank         string `json:"rank" validate:"max=40"`
	Platoon      string `json:"platoon" validate:"required,max=20"`
	Active       *bool  `json:"active"`
}

type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	OfficerID string `json:"officer_id,omitempty"`
	Platoon   string `json:"platoon,omitempty"`
	Active    bool   `json:"active"`
}

type SaveUserRequest struct {
	ID        string `json:"id" validate:"max=64"`
	Name      string `json:"name" validate:"required,max=120"`
	Role      string `json:"role" validate:"required,oneof=SUBORDINATE SERGEANT ADMIN"`
	OfficerID string `json:"officer_id" validate:"max=64"`
	Platoon   string `json:"platoon" validate:"max=20"`
	Active    *bool  `json:"active"`
}

func toOfficerDTO(o generic.Officer) OfficerDTO {
	return OfficerDTO{
		ID:           o.ID,
		Name:         o.Name,
		Registration: o.Registration,
		Rank:         o.Rank,
		Platoon:      o.Platoon,
		Active:       o.Active,
	}
}

func toUserDTO(u generic.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Role:      string(u.Role),
		OfficerID: u.OfficerID,
		Platoon:   u.Platoon,
		Active:    u.Active,
	}
}

// =============================================================================
// CREDITS AND BALANCE
// =============================================================================

type GrantCreditRequest struct {
	Year   int    `json:"year" validate:"required,min=1900,max=9999"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason" validate:"max=500"`
}

type LedgerEntryDTO struct {
	ID            string `json:"id"`
	OfficerID     string `json:"officer_id"`
	Year          int    `json:"year"`
	Delta         int    `json:"delta"`
	Reason        string `json:"reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	CreatedBy     string `json:"created_by"`
	CreatedByName string `json:"created_by_name,omitempty"`
}

type BalanceDTO struct {
	OfficerID string `json:"officer_id"`
	Year      int    `json:"year"`
	Credits   int    `json:"credits"`
	Consumed  int    `json:"consumed"`
	Available int    `json:"available"`
}

func toLedgerEntryDTO(e generic.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:            e.ID,
		OfficerID:     e.OfficerID,
		Year:          e.Year,
		Delta:         e.Delta,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		CreatedBy:     e.CreatedByActorID,
		CreatedByName: e.CreatedByName,
	}
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		OfficerID: b.OfficerID,
		Year:      b.Year,
		Credits:   b.Credits,
		Consumed:  b.Consumed,
		Available: b.Available(),
	}
}

// =============================================================================
// LEAVES
// =============================================================================

// CreateLeaveRequest: reason is either a ReasonJSON object or the legacy
// composed text.
type CreateLeaveRequest struct {
	OfficerID     string          `json:"officer_id" validate:"required"`
	Date          string          `json:"date" validate:"required,date"`
	Reason        json.RawMessage `json:"reason"`
	AllowOverride bool            `json:"allow_override"`
}

type SergeantDecisionRequest struct {
	Verdict string `json:"decision" validate:"required,oneof=APPROVE DENY"`
	Opinion string `json:"opinion" validate:"max=1000"`
}

type AdminDecisionRequest struct {
	Verdict string `json:"decision" validate:"required,oneof=VALIDATE REJECT"`
	Opinion string `json:"opinion" validate:"max=1000"`
}

type ExchangeLeaveRequest struct {
	NewDate string `json:"new_date" validate:"required,date"`
	Reason  string `json:"reason" validate:"max=500"`
}

type DeleteLeaveRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CommentRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

type LeaveDTO struct {
	ID                    string             `json:"id"`
	OfficerID             string             `json:"officer_id"`
	OfficerName           string             `json:"officer_name"`
	Registration          string             `json:"registration,omitempty"`
	Platoon               string             `json:"platoon"`
	Date                  string             `json:"date"`
	Status                string             `json:"status"`
	Approval              string             `json:"approval"`
	Reason                factory.ReasonJSON `json:"reason"`
	ReasonText            string             `json:"reason_text"`
	ConsumesCredit        bool               `json:"consumes_credit"`
	CreatedBy             string             `json:"created_by"`
	ResponsibleSergeantID string             `json:"responsible_sergeant_id,omitempty"`
	SergeantID            string             `json:"sergeant_id,omitempty"`
	AdminID               string             `json:"admin_id,omitempty"`
	SergeantOpinion       string             `json:"sergeant_opinion,omitempty"`
	AdminOpinion          string             `json:"admin_opinion,omitempty"`
	ExchangedToDate       *string            `json:"exchanged_to_date"`
	CreatedAt             string             `json:"created_at"`
	UpdatedAt             string             `json:"updated_at"`
	UpdatedBy             string             `json:"updated_by"`
	Version               int                `json:"version"`
}

// CreateLeaveResponse carries the balance check for credit-consuming
// reasons; Warning is set when the request was admitted by override.
type CreateLeaveResponse struct {
	Leave   LeaveDTO    `json:"leave"`
	Balance *BalanceDTO `json:"balance,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

type CommentDTO struct {
	ID         string `json:"id"`
	LeaveID    string `json:"leave_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	AuthorRank string `json:"author_rank,omitempty"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

type HistoryEntryDTO struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	ActorID   string          `json:"actor_id"`
	ActorName string          `json:"actor_name,omitempty"`
	SubjectID string          `json:"subject_id"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	Motive    string          `json:"motive,omitempty"`
	At        string          `json:"at"`
}

func toLeaveDTO(r leave.Record) LeaveDTO {
	dto := LeaveDTO{
		ID:                    r.ID,
		OfficerID:             r.OfficerID,
		OfficerName:           r.Snapshot.Name,
		Registration:          r.Snapshot.Registration,
		Platoon:               r.Snapshot.Platoon,
		Date:                  r.Date.String(),
		Status:                string(r.Status),
		Approval:              string(r.Approval),
		Reason:                factory.ToJSON(r.Reason),
		ReasonText:            r.ReasonText,
		ConsumesCredit:        r.ConsumesCredit(),
		CreatedBy:             r.CreatedByActorID,
		ResponsibleSergeantID: r.ResponsibleSergeantID,
		SergeantID:            r.SergeantID,
		AdminID:               r.AdminID,
		SergeantOpinion:       r.SergeantOpinion,
		AdminOpinion:          r.AdminOpinion,
		CreatedAt:             r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             r.UpdatedAt.Format(time.RFC3339),
		UpdatedBy:             r.UpdatedByActorID,
		Version:               r.Version,
	}
	if r.ExchangedToDate != nil {
		s := r.ExchangedToDate.String()
		dto.ExchangedToDate = &s
	}
	return dto
}

func toLeaveDTOs(records []leave.Record) []LeaveDTO {
	dtos := make([]LeaveDTO, len(records))
	for i, r := range records {
		dtos[i] = toLeaveDTO(r)
	}
	return dtos
}

func toCommentDTO(c leave.Comment) CommentDTO {
	return CommentDTO{
		ID:         c.ID,
		LeaveID:    c.LeaveID,
		AuthorID:   c.AuthorActorID,
		AuthorName: c.AuthorName,
		AuthorRank: c.AuthorRank,
		Message:    c.Message,
		Timestamp:  c.Timestamp.Format(time.RFC3339),
	}
}

func toHistoryDTOs(entries []generic.HistoryEntry) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HistoryEntryDTO{
			ID:        e.ID,
			Kind:      string(e.Kind),
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			SubjectID: e.SubjectID,
			Before:    e.Before,
			After:     e.After,
			Motive:    e.Motive,
			At:        e.At.Format(time.RFC3339),
		}
	}
	return dtos
}

// =============================================================================
// VACATIONS
// =============================================================================

type ScheduleVacationRequest struct {
	OfficerID     string `json:"officer_id" validate:"required"`
	ReferenceYear int    `json:"reference_year" validate:"required,min=1900,max=9999"`
	StartDate     string `json:"start_date" validate:"required,date"`
	DurationDays  int    `json:"duration_days" validate:"required,oneof=15 30"`
}

type VacationReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RescheduleVacationRequest struct {
	StartDate string `json:"start_date" validate:"required,date"`
}

type VacationDTO struct {
	ID            string `json:"id"`
	OfficerID     string `json:"officer_id"`
	OfficerName   string `json:"officer_name"`
	ReferenceYear int    `json:"reference_year"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DurationDays  int    `json:"duration_days"`
	Status        string `json:"status"`
	ChangeReason  string `json:"change_reason,omitempty"`
	CreatedBy     string `json:"created_by"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toVacationDTO(p vacation.Period) VacationDTO {
	return VacationDTO{
		ID:            p.ID,
		OfficerID:     p.OfficerID,
		OfficerName:   p.OfficerName,
		ReferenceYear: p.ReferenceYear,
		StartDate:     p.StartDate.String(),
		EndDate:       p.EndDate.String(),
		DurationDays:  p.DurationDays,
		Status:        string(p.Status),
		ChangeReason:  p.ChangeReason,
		CreatedBy:     p.CreatedByActorID,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// EVENTS
// =============================================================================

type CreateEventRequest struct {
	Type                  string   `json:"type" validate:"required,oneof=COURSE EAP OPERATION PREMIUM_LEAVE OTHER"`
	Title                 string   `json:"title" validate:"required,max=200"`
	Date                  string   `json:"date" validate:"required,date"`
	StartTime             string   `json:"start_time" validate:"required,clock"`
	EndTime               string   `json:"end_time" validate:"required,clock"`
	Location              string   `json:"location" validate:"max=200"`
	Description           string   `json:"description" validate:"max=2000"`
	ParticipantOfficerIDs []string `json:"participant_officer_ids" validate:"required,min=1"`
}

type EventDTO struct {
	ID                    string   `json:"id"`
	Type                  string   `json:"type"`
	Title                 string   `json:"title"`
	Date                  string   `json:"date"`
	StartTime             string   `json:"start_time"`
	EndTime               string   `json:"end_time"`
	Location              string   `json:"location,omitempty"`
	Description           string   `json:"description,omitempty"`
	ParticipantOfficerIDs []string `json:"participant_officer_ids"`
	CreatedBy             string   `json:"created_by"`
	CreatedAt             string   `json:"created_at"`
}

func toEventDTO(e schedule.Event) EventDTO {
	return EventDTO{
		ID:                    e.ID,
		Type:                  string(e.Type),
		Title:                 e.Title,
		Date:                  e.Date.String(),
		StartTime:             e.StartTime,
		EndTime:               e.EndTime,
		Location:              e.Location,
		Description:           e.Description,
		ParticipantOfficerIDs: e.ParticipantOfficerIDs,
		CreatedBy:             e.CreatedByActorID,
		CreatedAt:             e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type NotificationDTO struct {
	ID        string  `json:"id"`
	Message   string  `json:"message"`
	Link      string  `json:"link,omitempty"`
	CreatedAt string  `json:"created_at"`
	ReadAt    *string `json:"read_at"`
}

func toNotificationDTO(n generic.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        n.ID,
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		s := n.ReadAt.Format(time.RFC3339)
		dto.ReadAt = &s
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave workflow, the credit ledger, vacations and the unit
  agenda via REST API. Handles HTTP request/response, JSON serialization,
  and delegates every rule to the domain services.

ENDPOINTS:
  Directory:
    GET    /api/officers                         List officers (?include_inactive=true)
    POST   /api/officers                         Create officer (ADMIN)
    PUT    /api/officers/{id}                    Update officer (ADMIN)
    GET    /api/users, POST, PUT /{id}           Accounts (writes ADMIN)

  Credits:
    GET    /api/officers/{id}/balance?year=      Computed balance
    GET    /api/officers/{id}/credits?year=      Ledger entries
    POST   /api/officers/{id}/credits            Signed adjustment (ADMIN)

  Leaves:
    GET    /api/leaves                           List (?officer_id, platoon, year, from, to, approval, status)
    POST   /api/leaves                           Create
    POST   /api/leaves/{id}/sergeant-decision    APPROVE | DENY
    POST   /api/leaves/{id}/admin-decision       VALIDATE | REJECT
    POST   /api/leaves/{id}/exchange             Move to another day
    POST   /api/leaves/{id}/delete               Withdraw
    POST   /api/leaves/{id}/restore              Re-activate
    GET    /api/leaves/{id}/comments, POST       Comments
    GET    /api/leaves/{id}/history              Audit trail

  Vacations, events and notifications follow the same shape.

ARCHITECTURE:
  Handler holds the domain services, all backed by one sqlite.Store. The
  acting user is resolved once per request by ResolveActor and every
  service receives it explicitly.

REQUEST FLOW:
  1. Resolve actor (X-User-ID)
  2. Decode and shape-validate the body (decode)
  3. Call the domain service
  4. Serialize response, or map the error (errors.go)

VISIBILITY:
  A SUBORDINATE only sees its own officer's leaves, balance and credits.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/conflict"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/schedule"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/vacation"
)

// ActorHeader carries the id of the acting user account.
const ActorHeader = "X-User-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Workflow  *leave.Workflow
	Ledger    *generic.CreditLedger
	Vacations *vacation.Service
	Events    *schedule.Service
	Clock     generic.Clock
	Logger    *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires every domain service to store.
func NewHandler(store *sqlite.Store, clock generic.Clock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := conflict.NewChecker(store, logger)

	return &Handler{
		Store: store,
		Workflow: &leave.Workflow{
			Repo:      store,
			Comments:  store,
			Directory: store,
			Conflicts: checker,
			Notifier:  store,
			History:   store,
			Clock:     clock,
			Logger:    logger.Named("leave.workflow"),
		},
		Ledger: &generic.CreditLedger{Store: store, Clock: clock},
		Vacations: &vacation.Service{
			Store:     store,
			Directory: store,
			Conflicts: checker,
			Notifier:  store,
			History:   store,
			Clock:     clock,
			Logger:    logger.Named("vacation"),
		},
		Events: &schedule.Service{
			Store:     store,
			Directory: store,
			Conflicts: checker,
			Notifier:  store,
			History:   store,
			Clock:     clock,
			Logger:    logger.Named("schedule"),
		},
		Clock:  clock,
		Logger: logger.Named("api"),
	}
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// =============================================================================
// ACTOR
// =============================================================================

type ctxKey int

const actorKey ctxKey = iota

// ResolveActor loads the account named by ActorHeader and stores it in the
// request context. Unknown accounts get 401, inactive ones 403.
func (h *Handler) ResolveActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ActorHeader))
		if id == "" {
			writeStatus(w, http.StatusUnauthorized, "unauthenticated", ActorHeader+" header is required")
			return
		}
		u, err := h.Store.FindUser(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if u == nil {
			writeStatus(w, http.StatusUnauthorized, "unauthenticated", "unknown user "+id)
			return
		}
		if !u.Active {
			writeStatus(w, http.StatusForbidden, "inactive_account", "user "+id+" is inactive")
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, generic.ActorFromUser(*u))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFrom returns the actor stored by ResolveActor.
func ActorFrom(ctx context.Context) (generic.Actor, bool) {
	a, ok := ctx.Value(actorKey).(generic.Actor)
	return a, ok
}

func actor(r *http.Request) generic.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

// mayView reports whether a may read data of officerID.
func mayView(a generic.Actor, officerID string) error {
	if a.Role == generic.RoleSubordinate && a.OfficerID != officerID {
		return &generic.PermissionError{Role: a.Role, Operation: "view another officer's data"}
	}
	return nil
}

func requireAdmin(a generic.Actor, operation string) error {
	if a.Role != generic.RoleAdmin {
		return &generic.PermissionError{Role: a.Role, Operation: operation}
	}
	return nil
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the acting account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.FindUser(r.Context(), actor(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListOfficers returns active officers, or all with ?include_inactive=true.
func (h *Handler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	officers, err := h.Store.ListOfficers(r.Context(), r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]OfficerDTO, len(officers))
	for i, o := range officers {
		dtos[i] = toOfficerDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetOfficer(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.FindOfficer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfficerDTO(*o))
}

// SaveOfficer creates (POST) or updates (PUT /{id}) an officer.
func (h *Handler) SaveOfficer(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(actor(r), "manage officers"); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SaveOfficerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		if _, err := h.Store.FindOfficer(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		req.ID = id
		status = http.StatusOK
	}
	if req.ID == "" {
		req.ID = generic.NewID()
	}

	o := generic.Officer{
		ID:           req.ID,
		Name:         strings.TrimSpace(req.Name),
		Registration: strings.TrimSpace(req.Registration),
		Rank:         strings.TrimSpace(req.Rank),
		Platoon:      strings.TrimSpace(req.Platoon),
		Active:       req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveOfficer(r.Context(), o); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, toOfficerDTO(o))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.Store.FindUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if u == nil {
		h.writeError(w, r, &generic.NotFoundError{Kind: "user", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// SaveUser creates (POST) or updates (PUT /{id}) an account. A linked
// officer must exist.
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := requireAdmin(actor(r), "manage users"); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SaveUserRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		existing, err := h.Store.FindUser(ctx, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if existing == nil {
			h.writeError(w, r, &generic.NotFoundError{Kind: "user", ID: id})
			return
		}
		req.ID = id
		status = http.StatusOK
	}
	if req.ID == "" {
		req.ID = generic.NewID()
	}
	if req.OfficerID != "" {
		if _, err := h.Store.FindOfficer(ctx, req.OfficerID); err != nil {
			if generic.IsNotFound(err) {
				err = generic.Invalid("officer_id", "officer %s not found", req.OfficerID)
			}
			h.writeError(w, r, err)
			return
		}
	}
	role := generic.Role(req.Role)
	if role == generic.RoleSergeant && strings.TrimSpace(req.Platoon) == "" {
		h.writeError(w, r, generic.Invalid("platoon", "is required for a sergeant"))
		return
	}

	u := generic.User{
		ID:        req.ID,
		Name:      strings.TrimSpace(req.Name),
		Role:      role,
		OfficerID: req.OfficerID,
		Platoon:   strings.TrimSpace(req.Platoon),
		Active:    req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveUser(ctx, u); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, toUserDTO(u))
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// GetBalance returns credits, consumption and availability for ?year=
// (default: the current year).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	officerID := chi.URLParam(r, "id")
	if err := mayView(actor(r), officerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.queryYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.Store.FindOfficer(ctx, officerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.Workflow.Balance(ctx, officerID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")
	if err := mayView(actor(r), officerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.queryYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, err := h.Store.Entries(r.Context(), officerID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GrantCredit appends a signed credit adjustment.
func (h *Handler) GrantCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a := actor(r)
	officerID := chi.URLParam(r, "id")

	var req GrantCreditRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.Store.FindOfficer(ctx, officerID); err != nil {
		h.writeError(w, r, err)
		return
	}

	entry, err := h.Ledger.Grant(ctx, a, generic.GrantInput{
		OfficerID: officerID,
		Year:      req.Year,
		Delta:     req.Delta,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Store.Record(ctx, generic.HistoryEntry{
		ID:        generic.NewID(),
		Kind:      generic.HistoryCreditAdjusted,
		ActorID:   a.ID,
		ActorName: a.Name,
		SubjectID: officerID,
		After:     generic.Snapshot(toLedgerEntryDTO(*entry)),
		Motive:    entry.Reason,
		At:        entry.CreatedAt,
	}); err != nil {
		h.log().Warn("failed to record credit history", zap.String("entry_id", entry.ID), zap.Error(err))
	}
	h.log().Info("credits adjusted",
		zap.String("officer_id", officerID),
		zap.Int("year", entry.Year),
		zap.Int("delta", entry.Delta))

	writeJSON(w, http.StatusCreated, toLedgerEntryDTO(*entry))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ListLeaves returns leave records matching the query. Subordinates are
// always narrowed to their own officer.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	q := r.URL.Query()

	filter := leave.Filter{
		OfficerID: q.Get("officer_id"),
		Platoon:   q.Get("platoon"),
	}
	if a.Role == generic.RoleSubordinate {
		filter.OfficerID = a.OfficerID
	}
	var err error
	if filter.Year, err = queryInt(r, "year", 0); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.From, err = queryDate(r, "from"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, v := range queryList(r, "approval") {
		ap := leave.Approval(v)
		if !ap.Valid() {
			h.writeError(w, r, generic.Invalid("approval", "unknown value %q", v))
			return
		}
		filter.Approvals = append(filter.Approvals, ap)
	}
	for _, v := range queryList(r, "status") {
		st := leave.Status(v)
		if !st.Valid() {
			h.writeError(w, r, generic.Invalid("status", "unknown value %q", v))
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	records, err := h.Workflow.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(records))
}

// CreateLeave registers a new leave request.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reason, err := factory.ParseReason(req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Workflow.Create(r.Context(), actor(r), leave.CreateInput{
		OfficerID:     req.OfficerID,
		Date:          day,
		Reason:        reason,
		AllowOverride: req.AllowOverride,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := CreateLeaveResponse{Leave: toLeaveDTO(*res.Record)}
	if res.Balance != nil {
		b := toBalanceDTO(res.Balance.Balance)
		resp.Balance = &b
		resp.Warning = res.Balance.Warning()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.visibleLeave(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*rec))
}

func (h *Handler) SergeantDecision(w http.ResponseWriter, r *http.Request) {
	var req SergeantDecisionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Workflow.SergeantDecision(r.Context(), actor(r), chi.URLParam(r, "id"),
		leave.SergeantVerdict(req.Verdict), req.Opinion)
	h.writeLeave(w, r, rec, err)
}

func (h *Handler) AdminDecision(w http.ResponseWriter, r *http.Request) {
	var req AdminDecisionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Workflow.AdminDecision(r.Context(), actor(r), chi.URLParam(r, "id"),
		leave.AdminVerdict(req.Verdict), req.Opinion)
	h.writeLeave(w, r, rec, err)
}

func (h *Handler) ExchangeLeave(w http.ResponseWriter, r *http.Request) {
	var req ExchangeLeaveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	newDate, err := parseDate("new_date", req.NewDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Workflow.Exchange(r.Context(), actor(r), chi.URLParam(r, "id"), newDate, req.Reason)
	h.writeLeave(w, r, rec, err)
}

func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	var req DeleteLeaveRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.Workflow.Delete(r.Context(), actor(r), chi.URLParam(r, "id"), req.Reason)
	h.writeLeave(w, r, rec, err)
}

func (h *Handler) RestoreLeave(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Workflow.Restore(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.writeLeave(w, r, rec, err)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.visibleLeave(w, r)
	if !ok {
		return
	}
	comments, err := h.Workflow.ListComments(r.Context(), rec.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]CommentDTO, len(comments))
	for i, c := range comments {
		dtos[i] = toCommentDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.Workflow.Comment(r.Context(), actor(r), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentDTO(*c))
}

func (h *Handler) ListLeaveHistory(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.visibleLeave(w, r)
	if !ok {
		return
	}
	entries, err := h.Workflow.ListHistory(r.Context(), rec.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTOs(entries))
}

// visibleLeave loads {id} and checks the actor may see it. It writes the
// error response itself.
func (h *Handler) visibleLeave(w http.ResponseWriter, r *http.Request) (*leave.Record, bool) {
	rec, err := h.Workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		err = mayView(actor(r), rec.OfficerID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return rec, true
}

func (h *Handler) writeLeave(w http.ResponseWriter, r *http.Request, rec *leave.Record, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*rec))
}

// =============================================================================
// VACATION HANDLERS
// =============================================================================

func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	filter := vacation.Filter{OfficerID: r.URL.Query().Get("officer_id")}
	if a.Role == generic.RoleSubordinate {
		filter.OfficerID = a.OfficerID
	}
	var err error
	if filter.ReferenceYear, err = queryInt(r, "reference_year", 0); err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, v := range queryList(r, "status") {
		filter.Statuses = append(filter.Statuses, vacation.Status(v))
	}

	periods, err := h.Vacations.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]VacationDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toVacationDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetVacation(w http.ResponseWriter, r *http.Request) {
	p, err := h.Vacations.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		err = mayView(actor(r), p.OfficerID)
	}
	h.writeVacation(w, r, http.StatusOK, p, err)
}

// GetVacationAvailability returns the durations still offered for
// ?year= (default: the current year).
func (h *Handler) GetVacationAvailability(w http.ResponseWriter, r *http.Request) {
	officerID := chi.URLParam(r, "id")
	if err := mayView(actor(r), officerID); err != nil {
		h.writeError(w, r, err)
		return
	}
	year, err := h.queryYear(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	av, err := h.Vacations.Availability(r.Context(), officerID, year)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

func (h *Handler) ScheduleVacation(w http.ResponseWriter, r *http.Request) {
	var req ScheduleVacationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Vacations.Schedule(r.Context(), actor(r), vacation.ScheduleInput{
		OfficerID:     req.OfficerID,
		ReferenceYear: req.ReferenceYear,
		StartDate:     start,
		DurationDays:  req.DurationDays,
	})
	h.writeVacation(w, r, http.StatusCreated, p, err)
}

func (h *Handler) RequestVacationChange(w http.ResponseWriter, r *http.Request) {
	var req VacationReasonRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Vacations.RequestChange(r.Context(), actor(r), chi.URLParam(r, "id"), req.Reason)
	h.writeVacation(w, r, http.StatusOK, p, err)
}

func (h *Handler) RescheduleVacation(w http.ResponseWriter, r *http.Request) {
	var req RescheduleVacationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Vacations.Reschedule(r.Context(), actor(r), chi.URLParam(r, "id"), start)
	h.writeVacation(w, r, http.StatusOK, p, err)
}

func (h *Handler) CancelVacation(w http.ResponseWriter, r *http.Request) {
	var req VacationReasonRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Vacations.Cancel(r.Context(), actor(r), chi.URLParam(r, "id"), req.Reason)
	h.writeVacation(w, r, http.StatusOK, p, err)
}

// CompleteVacations runs the completion sweep now (ADMIN).
func (h *Handler) CompleteVacations(sweeper *VacationSweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireAdmin(actor(r), "run the vacation sweep"); err != nil {
			h.writeError(w, r, err)
			return
		}
		var (
			n   int
			err error
		)
		if sweeper != nil {
			n, err = sweeper.RunNow(r.Context())
		} else {
			n, err = h.Vacations.CompleteDue(r.Context())
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"completed": n})
	}
}

func (h *Handler) writeVacation(w http.ResponseWriter, r *http.Request, status int, p *vacation.Period, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, toVacationDTO(*p))
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns events dated in [?from, ?to].
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	events, err := h.Events.List(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.Events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*e))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	day, err := parseDate("date", req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.Events.Create(r.Context(), actor(r), schedule.CreateInput{
		Type:                  schedule.Type(req.Type),
		Title:                 req.Title,
		Date:                  day,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		Location:              req.Location,
		Description:           req.Description,
		ParticipantOfficerIDs: req.ParticipantOfficerIDs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(*e))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Events.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns the actor's inbox, newest first (?unread=true).
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.Store.Notifications(r.Context(), actor(r).ID, r.URL.Query().Get("unread") == "true")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]NotificationDTO, len(inbox))
	for i, n := range inbox {
		dtos[i] = toNotificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.Store.MarkNotificationRead(r.Context(), actor(r).ID, chi.URLParam(r, "id"), h.Clock.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decode reads a JSON body into dst and checks its validate tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return generic.Invalid("body", "is required")
		}
		return generic.Invalid("body", "malformed JSON: %v", err)
	}
	return factory.Validate(dst, "")
}

func parseDate(field, s string) (generic.Date, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return generic.Date{}, generic.Invalid(field, "must be a date as YYYY-MM-DD")
	}
	return d, nil
}

func queryDate(r *http.Request, key string) (generic.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return generic.Date{}, nil
	}
	return parseDate(key, v)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, generic.Invalid(key, "must be an integer")
	}
	return n, nil
}

// queryYear reads ?year=, defaulting to the current year.
func (h *Handler) queryYear(r *http.Request) (int, error) {
	year, err := queryInt(r, "year", h.Clock.Today().Year())
	if err != nil {
		return 0, err
	}
	if year < 1900 || year > 9999 {
		return 0, generic.Invalid("year", "%d is out of range", year)
	}
	return year, nil
}

// queryList accepts both ?k=a&k=b and ?k=a,b.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

/*
handlers_test.go - HTTP tests for the API layer

Tests for:
- Actor resolution (401 / 403)
- Leave pipeline over HTTP: create, sergeant decision, admin decision
- Error mapping: 400 with field, 403, 404, 409, 422 with balance
- Subordinate visibility
- Credits, notifications, events, vacations and the manual sweep
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testToday = time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)

type testServer struct {
	h      *Handler
	router http.Handler
}

// newTestServer returns a server with the "unit" scenario loaded.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, generic.FixedClock(testToday), zaptest.NewLogger(t))
	require.NoError(t, h.Load(context.Background(), "unit"))

	return &testServer{
		h:      h,
		router: NewRouter(h, RouterOptions{DevRoutes: true}),
	}
}

func (s *testServer) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(ActorHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func generalCommander(officerID, date string) map[string]any {
	return map[string]any{
		"officer_id": officerID,
		"date":       date,
		"reason":     map[string]any{"category": "general_commander"},
	}
}

// createLeave posts a leave and returns it, failing unless it was created.
func (s *testServer) createLeave(t *testing.T, userID string, body any) LeaveDTO {
	t.Helper()
	rec := s.do(t, userID, http.MethodPost, "/api/leaves", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[CreateLeaveResponse](t, rec).Leave
}

// =============================================================================
// ACTOR
// =============================================================================

func TestHealth_NeedsNoActor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "", http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolveActor(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.h.Store.SaveUser(context.Background(), generic.User{
		ID: "u-gone", Name: "Sd Antigo", Role: generic.RoleSubordinate, Active: false,
	}))

	tests := []struct {
		name   string
		userID string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "unauthenticated"},
		{"unknown user", "u-nobody", http.StatusUnauthorized, "unauthenticated"},
		{"inactive user", "u-gone", http.StatusForbidden, "inactive_account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.userID, http.MethodGet, "/api/me", nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeAs[ErrorResponse](t, rec).Code)
		})
	}
}

func TestMe_ReturnsActingAccount(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, DemoSergeant1ID, http.MethodGet, "/api/me", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeAs[UserDTO](t, rec)
	assert.Equal(t, "SERGEANT", me.Role)
	assert.Equal(t, "1PEL", me.Platoon)
}

// =============================================================================
// LEAVE PIPELINE
// =============================================================================

func TestLeavePipeline_RequestApproveValidate(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: Silva requests a general-commander leave
	rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/leaves", generalCommander("off-silva", "2024-04-10"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[CreateLeaveResponse](t, rec)
	assert.Equal(t, "SENT_TO_SERGEANT", created.Leave.Approval)
	assert.Equal(t, "ACTIVE", created.Leave.Status)
	assert.Equal(t, DemoSergeant1ID, created.Leave.ResponsibleSergeantID)
	require.NotNil(t, created.Balance)
	assert.Equal(t, 2, created.Balance.Available)
	assert.Empty(t, created.Warning)

	id := created.Leave.ID

	// WHEN: the sergeant approves and the commander validates
	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/leaves/"+id+"/sergeant-decision",
		map[string]string{"decision": "APPROVE", "opinion": "De acordo."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "APPROVED_BY_SERGEANT", decodeAs[LeaveDTO](t, rec).Approval)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/leaves/"+id+"/admin-decision",
		map[string]string{"decision": "VALIDATE", "opinion": "Validado."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	validated := decodeAs[LeaveDTO](t, rec)

	// THEN: the leave consumes one credit
	assert.Equal(t, "VALIDATED_BY_ADMIN", validated.Approval)
	assert.True(t, validated.ConsumesCredit)
	assert.Equal(t, 3, validated.Version)

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/officers/off-silva/balance?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeAs[BalanceDTO](t, rec)
	assert.Equal(t, 2, b.Credits)
	assert.Equal(t, 1, b.Consumed)
	assert.Equal(t, 1, b.Available)

	// AND: every transition is in the history
	rec = s.do(t, DemoAdminID, http.MethodGet, "/api/leaves/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]HistoryEntryDTO](t, rec), 3)
}

func TestLeave_ExchangeDeleteRestore(t *testing.T) {
	s := newTestServer(t)
	l := s.createLeave(t, DemoAdminID, generalCommander("off-costa", "2024-04-12"))
	require.Equal(t, "VALIDATED_BY_ADMIN", l.Approval)

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/leaves/"+l.ID+"/exchange",
		map[string]string{"new_date": "2024-04-20", "reason": "Troca de escala"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exchanged := decodeAs[LeaveDTO](t, rec)
	assert.Equal(t, "EXCHANGED", exchanged.Status)
	require.NotNil(t, exchanged.ExchangedToDate)
	assert.Equal(t, "2024-04-20", *exchanged.ExchangedToDate)
	assert.False(t, exchanged.ConsumesCredit)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/leaves/"+l.ID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ACTIVE", decodeAs[LeaveDTO](t, rec).Status)

	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/leaves/"+l.ID+"/delete",
		map[string]string{"reason": "Convocado"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DELETED", decodeAs[LeaveDTO](t, rec).Status)
}

func TestLeave_Comments(t *testing.T) {
	s := newTestServer(t)
	l := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoSergeant1ID, http.MethodPost, "/api/leaves/"+l.ID+"/comments",
		map[string]string{"message": "Confirme a escala."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/leaves/"+l.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decodeAs[[]CommentDTO](t, rec)
	require.Len(t, comments, 1)
	assert.Equal(t, "Confirme a escala.", comments[0].Message)
	assert.Equal(t, DemoSergeant1ID, comments[0].AuthorID)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestCreateLeave_NoBalanceIs422WithBalance(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: Silva's credits for 2024 are withdrawn
	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/officers/off-silva/credits",
		map[string]any{"year": 2024, "delta": -2, "reason": "Ajuste"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Silva requests a credit-consuming leave
	rec = s.do(t, DemoSilvaID, http.MethodPost, "/api/leaves", generalCommander("off-silva", "2024-04-10"))

	// THEN: 422 with the balance in the body
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decodeAs[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_balance", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "off-silva", details["officer_id"])
	assert.EqualValues(t, 2024, details["year"])
	assert.EqualValues(t, 0, details["balance"])
}

func TestCreateLeave_OverrideReturnsWarning(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/officers/off-silva/credits",
		map[string]any{"year": 2024, "delta": -2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := generalCommander("off-silva", "2024-04-10")
	body["allow_override"] = true
	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/leaves", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeAs[CreateLeaveResponse](t, rec)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, "APPROVED_BY_SERGEANT", resp.Leave.Approval)
}

func TestCreateLeave_SameDayIs409(t *testing.T) {
	s := newTestServer(t)
	first := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/leaves", generalCommander("off-silva", "2024-04-10"))

	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	resp := decodeAs[ErrorResponse](t, rec)
	assert.Equal(t, "schedule_conflict", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, first.ID, details["record_id"])
	assert.Equal(t, "2024-04-10", details["date"])
}

func TestCreateLeave_ValidationIs400WithField(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing body", nil, "body"},
		{"missing date", map[string]any{"officer_id": "off-silva", "reason": "Comandante Geral"}, "date"},
		{"bad date", map[string]any{"officer_id": "off-silva", "date": "10/04/2024", "reason": "Comandante Geral"}, "date"},
		{"past date", generalCommander("off-silva", "2024-03-01"), "date"},
		{"missing reason", map[string]any{"officer_id": "off-silva", "date": "2024-04-10"}, "reason"},
		{"unknown category", map[string]any{
			"officer_id": "off-silva", "date": "2024-04-10",
			"reason": map[string]any{"category": "holiday"},
		}, "reason.category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/leaves", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decodeAs[ErrorResponse](t, rec)
			assert.Equal(t, "validation_failed", resp.Code)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
}

func TestMalformedJSON_Is400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/leaves", bytes.NewBufferString("{not json"))
	req.Header.Set(ActorHeader, DemoSilvaID)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body", decodeAs[ErrorResponse](t, rec).Field)
}

func TestSergeantDecision_BySubordinateIs403(t *testing.T) {
	s := newTestServer(t)
	l := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/leaves/"+l.ID+"/sergeant-decision",
		map[string]string{"decision": "APPROVE", "opinion": "Eu mesmo aprovo."})

	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, "permission_denied", decodeAs[ErrorResponse](t, rec).Code)
}

func TestAdminDecision_BeforeSergeantIs409(t *testing.T) {
	s := newTestServer(t)
	l := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/leaves/"+l.ID+"/admin-decision",
		map[string]string{"decision": "VALIDATE", "opinion": "Validado."})

	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	resp := decodeAs[ErrorResponse](t, rec)
	assert.Equal(t, "state_conflict", resp.Code)
}

func TestDecision_UnknownVerdictIs400(t *testing.T) {
	s := newTestServer(t)
	l := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoSergeant1ID, http.MethodPost, "/api/leaves/"+l.ID+"/sergeant-decision",
		map[string]string{"decision": "MAYBE", "opinion": "Talvez."})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "decision", decodeAs[ErrorResponse](t, rec).Field)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"leave", "/api/leaves/nope"},
		{"officer", "/api/officers/nope"},
		{"user", "/api/users/nope"},
		{"vacation", "/api/vacations/nope"},
		{"event", "/api/events/nope"},
		{"route", "/api/nothing-here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, DemoAdminID, http.MethodGet, tt.path, nil)

			assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.Equal(t, "not_found", decodeAs[ErrorResponse](t, rec).Code)
		})
	}
}

// =============================================================================
// VISIBILITY
// =============================================================================

func TestSubordinate_SeesOnlyOwnData(t *testing.T) {
	s := newTestServer(t)
	silva := s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))
	s.createLeave(t, DemoCostaID, generalCommander("off-costa", "2024-04-11"))

	// Listing is narrowed, whatever officer_id is asked for
	rec := s.do(t, DemoCostaID, http.MethodGet, "/api/leaves?officer_id=off-silva", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	leaves := decodeAs[[]LeaveDTO](t, rec)
	require.Len(t, leaves, 1)
	assert.Equal(t, "off-costa", leaves[0].OfficerID)

	for _, path := range []string{
		"/api/leaves/" + silva.ID,
		"/api/leaves/" + silva.ID + "/history",
		"/api/officers/off-silva/balance",
		"/api/officers/off-silva/credits",
	} {
		rec := s.do(t, DemoCostaID, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	// The sergeant sees both
	rec = s.do(t, DemoSergeant1ID, http.MethodGet, "/api/leaves?platoon=1PEL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]LeaveDTO](t, rec), 2)
}

func TestListLeaves_Filters(t *testing.T) {
	s := newTestServer(t)
	s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))
	s.createLeave(t, DemoAdminID, generalCommander("off-rocha", "2024-04-15"))

	rec := s.do(t, DemoAdminID, http.MethodGet, "/api/leaves?approval=SENT_TO_SERGEANT", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	leaves := decodeAs[[]LeaveDTO](t, rec)
	require.Len(t, leaves, 1)
	assert.Equal(t, "off-silva", leaves[0].OfficerID)

	rec = s.do(t, DemoAdminID, http.MethodGet, "/api/leaves?from=2024-04-12&to=2024-04-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	leaves = decodeAs[[]LeaveDTO](t, rec)
	require.Len(t, leaves, 1)
	assert.Equal(t, "off-rocha", leaves[0].OfficerID)

	rec = s.do(t, DemoAdminID, http.MethodGet, "/api/leaves?status=GONE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CREDITS AND DIRECTORY
// =============================================================================

func TestGrantCredit_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"year": 2024, "delta": 1, "reason": "Serviço extraordinário"}

	rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/officers/off-silva/credits", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/officers/off-silva/credits", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/officers/off-silva/credits?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeAs[[]LedgerEntryDTO](t, rec)
	require.Len(t, entries, 2)

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/officers/off-silva/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeAs[BalanceDTO](t, rec).Available)
}

func TestGrantCredit_ZeroDeltaIs400(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/officers/off-silva/credits",
		map[string]any{"year": 2024, "delta": 0})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "delta", decodeAs[ErrorResponse](t, rec).Field)
}

func TestSaveOfficer(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"name": "Sd Novo", "platoon": "2PEL", "rank": "Soldado"}

	rec := s.do(t, DemoSergeant1ID, http.MethodPost, "/api/officers", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/officers", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[OfficerDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	body["active"] = false
	rec = s.do(t, DemoAdminID, http.MethodPut, "/api/officers/"+created.ID, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeAs[OfficerDTO](t, rec).Active)

	rec = s.do(t, DemoAdminID, http.MethodGet, "/api/officers", nil)
	for _, o := range decodeAs[[]OfficerDTO](t, rec) {
		assert.NotEqual(t, created.ID, o.ID, "inactive officer listed")
	}
}

func TestSaveUser_SergeantNeedsPlatoon(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/users",
		map[string]any{"name": "Sgt Novo", "role": "SERGEANT"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "platoon", decodeAs[ErrorResponse](t, rec).Field)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotifications_SergeantIsToldAboutRequests(t *testing.T) {
	s := newTestServer(t)
	s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-10"))

	rec := s.do(t, DemoSergeant1ID, http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decodeAs[[]NotificationDTO](t, rec)
	require.Len(t, inbox, 1)
	assert.Nil(t, inbox[0].ReadAt)

	// Another sergeant cannot mark it
	rec = s.do(t, DemoSergeant2ID, http.MethodPost, "/api/notifications/"+inbox[0].ID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/notifications/"+inbox[0].ID+"/read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, DemoSergeant1ID, http.MethodGet, "/api/notifications?unread=true", nil)
	assert.Empty(t, decodeAs[[]NotificationDTO](t, rec))

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/notifications", nil)
	assert.Empty(t, decodeAs[[]NotificationDTO](t, rec), "the requester is not notified of their own request")
}

// =============================================================================
// EVENTS AND VACATIONS
// =============================================================================

func TestEvents_ConflictWithLeaveOnTheSameDay(t *testing.T) {
	s := newTestServer(t)
	event := map[string]any{
		"type":                    "COURSE",
		"title":                   "Curso de Tiro",
		"date":                    "2024-04-18",
		"start_time":              "08:00",
		"end_time":                "17:00",
		"participant_officer_ids": []string{"off-silva"},
	}

	rec := s.do(t, DemoSilvaID, http.MethodPost, "/api/events", event)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// GIVEN: Silva already requested the 18th off
	s.createLeave(t, DemoSilvaID, generalCommander("off-silva", "2024-04-18"))

	// WHEN: the sergeant schedules Silva for a course that day
	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/events", event)

	// THEN: the leave wins
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "schedule_conflict", decodeAs[ErrorResponse](t, rec).Code)

	// The day after is free.
	event["date"] = "2024-04-19"
	rec = s.do(t, DemoSergeant1ID, http.MethodPost, "/api/events", event)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[EventDTO](t, rec)

	rec = s.do(t, DemoSilvaID, http.MethodGet, "/api/events?from=2024-04-01&to=2024-04-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]EventDTO](t, rec), 1)

	rec = s.do(t, DemoAdminID, http.MethodDelete, "/api/events/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestEvents_EndBeforeStartIs400(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/events", map[string]any{
		"type":                    "OPERATION",
		"title":                   "Operação Centro",
		"date":                    "2024-04-18",
		"start_time":              "18:00",
		"end_time":                "08:00",
		"participant_officer_ids": []string{"off-rocha"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end_time", decodeAs[ErrorResponse](t, rec).Field)
}

func TestVacations_ScheduleWithinQuota(t *testing.T) {
	s := newTestServer(t)
	block := map[string]any{
		"officer_id":     "off-rocha",
		"reference_year": 2024,
		"start_date":     "2024-05-01",
		"duration_days":  15,
	}

	rec := s.do(t, DemoAdminID, http.MethodPost, "/api/vacations", block)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeAs[VacationDTO](t, rec)
	assert.Equal(t, "2024-05-15", first.EndDate)
	assert.Equal(t, "SCHEDULED", first.Status)

	rec = s.do(t, DemoRochaID, http.MethodGet, "/api/officers/off-rocha/vacation-availability?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	av := decodeAs[map[string]any](t, rec)
	assert.EqualValues(t, 15, av["held_days"])

	// A 30-day block would exceed the yearly quota
	block["start_date"] = "2024-07-01"
	block["duration_days"] = 30
	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/vacations", block)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "duration_days", decodeAs[ErrorResponse](t, rec).Field)

	// A leave inside the block conflicts
	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/leaves", generalCommander("off-rocha", "2024-05-05"))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// Rocha asks for a change and the commander moves the block
	rec = s.do(t, DemoRochaID, http.MethodPost, "/api/vacations/"+first.ID+"/request-change",
		map[string]string{"reason": "Viagem familiar"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CHANGE_REQUESTED", decodeAs[VacationDTO](t, rec).Status)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/vacations/"+first.ID+"/reschedule",
		map[string]string{"start_date": "2024-06-03"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decodeAs[VacationDTO](t, rec)
	assert.Equal(t, "2024-06-17", moved.EndDate)
	assert.Equal(t, "SCHEDULED", moved.Status)
}

func TestCompleteVacations_AdminOnly(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, DemoSergeant1ID, http.MethodPost, "/api/admin/vacations/complete", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, DemoAdminID, http.MethodPost, "/api/admin/vacations/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]int{"completed": 0}, decodeAs[map[string]int](t, rec))
}

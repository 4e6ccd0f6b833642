package generic_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	gstore "github.com/warp/leave-engine/generic/store"
)

// =============================================================================
// DATES AND PERIODS
// =============================================================================

func TestDate_DropsTimeOfDay(t *testing.T) {
	late := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "2024-03-10", generic.DateOf(late).String())
	assert.Equal(t, generic.MustParseDate("2024-03-10"), generic.DateOf(late))
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Day generic.Date `json:"day"`
	}

	b, err := json.Marshal(payload{Day: generic.MustParseDate("2024-02-29")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-02-29"}`, string(b))

	b, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-12-31"}`), &p))
	assert.Equal(t, 2024, p.Day.Year())
	assert.Error(t, json.Unmarshal([]byte(`{"day":"31/12/2024"}`), &p))
}

func TestParseClockTime(t *testing.T) {
	m, err := generic.ParseClockTime("19:30")
	require.NoError(t, err)
	assert.Equal(t, 19*60+30, m)

	for _, bad := range []string{"", "7:30", "24:00", "12:60", "noon"} {
		_, err := generic.ParseClockTime(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestPeriod(t *testing.T) {
	vacation := generic.PeriodOfDays(generic.MustParseDate("2024-01-25"), 15)
	assert.Equal(t, "2024-02-08", vacation.End.String(), "crosses the month boundary")
	assert.Equal(t, 15, vacation.Len())
	assert.Len(t, vacation.Days(), 15)
	assert.True(t, vacation.Valid())

	assert.True(t, vacation.Contains(generic.MustParseDate("2024-01-25")))
	assert.True(t, vacation.Contains(generic.MustParseDate("2024-02-08")))
	assert.False(t, vacation.Contains(generic.MustParseDate("2024-02-09")))

	touching := generic.SingleDay(vacation.End)
	assert.True(t, vacation.Overlaps(touching))
	assert.True(t, touching.Overlaps(vacation))
	assert.False(t, vacation.Overlaps(generic.SingleDay(vacation.End.AddDays(1))))

	inverted := generic.Period{Start: vacation.End, End: vacation.Start}
	assert.False(t, inverted.Valid())
	assert.Equal(t, 366, generic.YearPeriod(2024).Len())
}

func TestClock_NilFallsBackToWallClock(t *testing.T) {
	var c generic.Clock
	assert.False(t, c.Now().IsZero())
	assert.False(t, c.Today().IsZero())

	fixed := generic.FixedClock(time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-04-01", fixed.Today().String())
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrors_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", generic.Invalid("date", "is required"), generic.ErrValidation},
		{"permission", &generic.PermissionError{Role: generic.RoleSubordinate, Operation: "restore"}, generic.ErrPermission},
		{"state", &generic.StateConflictError{SubjectID: "l1", Operation: "restore", Current: "VALIDATED_BY_ADMIN/ACTIVE"}, generic.ErrStateConflict},
		{"balance", &generic.BalanceError{OfficerID: "o1", Year: 2024}, generic.ErrInsufficientBalance},
		{"conflict", &generic.ConflictError{OfficerID: "o1", Kind: generic.CommitmentVacation, RecordID: "v1"}, generic.ErrScheduleConflict},
		{"not found", &generic.NotFoundError{Kind: "leave", ID: "l1"}, generic.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := errors.Join(errors.New("context"), tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.True(t, generic.IsClientError(wrapped))
			assert.False(t, generic.IsRetryable(wrapped))
		})
	}

	assert.False(t, generic.IsClientError(errors.New("disk full")))
}

func TestStateConflictError_KeepsCause(t *testing.T) {
	err := &generic.StateConflictError{
		SubjectID: "l1",
		Operation: "sergeant_decision",
		Current:   "SENT_TO_SERGEANT/ACTIVE",
		Err:       generic.ErrConcurrentModification,
	}
	assert.ErrorIs(t, err, generic.ErrStateConflict)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
	assert.True(t, generic.IsRetryable(err))
}

// =============================================================================
// CREDIT LEDGER
// =============================================================================

func newLedger() (*generic.CreditLedger, *gstore.Memory) {
	store := gstore.NewMemory()
	return &generic.CreditLedger{
		Store: store,
		Clock: generic.FixedClock(time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)),
	}, store
}

var admin = generic.Actor{ID: "u-adm", Name: "Cap Lima", Role: generic.RoleAdmin}

func TestCreditLedger_Grant(t *testing.T) {
	// GIVEN: an empty ledger
	ledger, _ := newLedger()
	ctx := context.Background()

	// WHEN: an admin grants and then corrects credits
	first, err := ledger.Grant(ctx, admin, generic.GrantInput{OfficerID: "off-1", Year: 2024, Delta: 10, Reason: " annual "})
	require.NoError(t, err)
	second, err := ledger.Grant(ctx, admin, generic.GrantInput{OfficerID: "off-1", Year: 2024, Delta: -3, Reason: "correction"})
	require.NoError(t, err)

	// THEN: entries are stamped and summed
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "annual", first.Reason)
	assert.Equal(t, "u-adm", first.CreatedByActorID)
	assert.Equal(t, "Cap Lima", first.CreatedByName)

	credits, err := ledger.Credits(ctx, "off-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 7, credits)

	credits, err = ledger.Credits(ctx, "off-1", 2025)
	require.NoError(t, err)
	assert.Zero(t, credits)
}

func TestCreditLedger_Grant_Rejects(t *testing.T) {
	ledger, store := newLedger()
	ctx := context.Background()

	_, err := ledger.Grant(ctx, generic.Actor{ID: "u-sgt", Role: generic.RoleSergeant},
		generic.GrantInput{OfficerID: "off-1", Year: 2024, Delta: 1})
	assert.ErrorIs(t, err, generic.ErrPermission)

	for _, in := range []generic.GrantInput{
		{Year: 2024, Delta: 1},
		{OfficerID: "off-1", Year: 0, Delta: 1},
		{OfficerID: "off-1", Year: 2024, Delta: 0},
	} {
		_, err := ledger.Grant(ctx, admin, in)
		assert.ErrorIs(t, err, generic.ErrValidation, "input %+v", in)
	}

	entries, err := store.Entries(ctx, "off-1", 2024)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreditLedger_StoreFailure(t *testing.T) {
	ledger, store := newLedger()
	store.Err = errors.New("read-only")

	_, err := ledger.Grant(context.Background(), admin, generic.GrantInput{OfficerID: "off-1", Year: 2024, Delta: 1})
	require.Error(t, err)
	assert.False(t, generic.IsClientError(err))
}

func TestSnapshot(t *testing.T) {
	assert.Nil(t, generic.Snapshot(nil))
	assert.JSONEq(t, `{"a":1}`, string(generic.Snapshot(map[string]int{"a": 1})))
}

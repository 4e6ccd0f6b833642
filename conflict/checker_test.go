package conflict_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/conflict"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// calendar is an in-memory commitment source for all three kinds.
type calendar struct {
	commitments []conflict.Commitment
	err         error
}

func (c *calendar) find(officerID string, kind generic.CommitmentKind, p generic.Period) ([]conflict.Commitment, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []conflict.Commitment
	for _, cm := range c.commitments {
		if cm.OfficerID == officerID && cm.Kind == kind && cm.Period.Overlaps(p) {
			out = append(out, cm)
		}
	}
	return out, nil
}

func (c *calendar) VacationsOverlapping(_ context.Context, officerID string, p generic.Period) ([]conflict.Commitment, error) {
	return c.find(officerID, generic.CommitmentVacation, p)
}

func (c *calendar) ActiveLeavesBetween(_ context.Context, officerID string, p generic.Period) ([]conflict.Commitment, error) {
	return c.find(officerID, generic.CommitmentLeave, p)
}

func (c *calendar) EventsOn(_ context.Context, officerID string, day generic.Date) ([]conflict.Commitment, error) {
	return c.find(officerID, generic.CommitmentEvent, generic.SingleDay(day))
}

func day(s string) generic.Date { return generic.MustParseDate(s) }

func newCalendar() *calendar {
	return &calendar{commitments: []conflict.Commitment{
		{ID: "vac-1", OfficerID: "off-1", Kind: generic.CommitmentVacation,
			Period: generic.PeriodOfDays(day("2024-07-01"), 15)},
		{ID: "lv-1", OfficerID: "off-1", Kind: generic.CommitmentLeave,
			Period: generic.SingleDay(day("2024-05-01"))},
		{ID: "ev-1", OfficerID: "off-2", Kind: generic.CommitmentEvent,
			Period: generic.SingleDay(day("2024-05-10"))},
	}}
}

func requireConflict(t *testing.T, err error, kind generic.CommitmentKind, id, date string) {
	t.Helper()
	var cErr *generic.ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.ErrorIs(t, err, generic.ErrScheduleConflict)
	assert.Equal(t, kind, cErr.Kind)
	assert.Equal(t, id, cErr.RecordID)
	assert.Equal(t, date, cErr.Date.String())
}

// =============================================================================
// CHECKS
// =============================================================================

func TestCheckLeave(t *testing.T) {
	c := conflict.NewChecker(newCalendar(), nil)
	ctx := context.Background()

	requireConflict(t, c.CheckLeave(ctx, "off-1", day("2024-07-15"), ""), generic.CommitmentVacation, "vac-1", "2024-07-15")
	requireConflict(t, c.CheckLeave(ctx, "off-1", day("2024-05-01"), ""), generic.CommitmentLeave, "lv-1", "2024-05-01")

	assert.NoError(t, c.CheckLeave(ctx, "off-1", day("2024-05-01"), "lv-1"), "a record does not conflict with itself")
	assert.NoError(t, c.CheckLeave(ctx, "off-1", day("2024-07-16"), ""))
	assert.NoError(t, c.CheckLeave(ctx, "off-2", day("2024-05-01"), ""), "other officers are independent")

	// Events do not block leaves.
	assert.NoError(t, c.CheckLeave(ctx, "off-2", day("2024-05-10"), ""))
}

func TestCheckVacation(t *testing.T) {
	c := conflict.NewChecker(newCalendar(), nil)
	ctx := context.Background()

	// Overlapping the tail of an existing block reports the first shared day.
	p := generic.PeriodOfDays(day("2024-07-10"), 15)
	requireConflict(t, c.CheckVacation(ctx, "off-1", p, ""), generic.CommitmentVacation, "vac-1", "2024-07-10")

	// Rescheduling a block over its own days is fine.
	assert.NoError(t, c.CheckVacation(ctx, "off-1", p, "vac-1"))

	// A leave inside the range blocks it.
	p = generic.PeriodOfDays(day("2024-04-20"), 15)
	requireConflict(t, c.CheckVacation(ctx, "off-1", p, ""), generic.CommitmentLeave, "lv-1", "2024-05-01")

	err := c.CheckVacation(ctx, "off-1", generic.Period{Start: day("2024-09-10"), End: day("2024-09-01")}, "")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestCheckEvent(t *testing.T) {
	c := conflict.NewChecker(newCalendar(), nil)
	ctx := context.Background()

	requireConflict(t, c.CheckEvent(ctx, "off-2", day("2024-05-10"), ""), generic.CommitmentEvent, "ev-1", "2024-05-10")
	requireConflict(t, c.CheckEvent(ctx, "off-1", day("2024-05-01"), ""), generic.CommitmentLeave, "lv-1", "2024-05-01")
	assert.NoError(t, c.CheckEvent(ctx, "off-2", day("2024-05-10"), "ev-1"))
}

func TestCheckParticipants(t *testing.T) {
	cal := newCalendar()
	c := conflict.NewChecker(cal, nil)
	c.MaxConcurrency = 2
	ctx := context.Background()

	// GIVEN: three participants, one on vacation
	err := c.CheckParticipants(ctx, []string{"off-3", "off-1", "off-4"}, day("2024-07-02"), "")

	// THEN: the vacation is reported
	requireConflict(t, err, generic.CommitmentVacation, "vac-1", "2024-07-02")

	assert.NoError(t, c.CheckParticipants(ctx, []string{"off-1", "off-2", "off-3"}, day("2024-06-01"), ""))
	assert.NoError(t, c.CheckParticipants(ctx, nil, day("2024-06-01"), ""))
}

func TestCheck_SourceErrorIsNotAConflict(t *testing.T) {
	cal := newCalendar()
	cal.err = errors.New("database is locked")
	c := conflict.NewChecker(cal, nil)

	err := c.CheckLeave(context.Background(), "off-1", day("2024-05-02"), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, generic.ErrScheduleConflict)
	assert.ErrorContains(t, err, "database is locked")
}

func TestChecker_NilSourcesAreEmpty(t *testing.T) {
	c := &conflict.Checker{}
	ctx := context.Background()

	assert.NoError(t, c.CheckLeave(ctx, "off-1", day("2024-05-01"), ""))
	assert.NoError(t, c.CheckEvent(ctx, "off-1", day("2024-05-01"), ""))
	assert.NoError(t, c.CheckParticipants(ctx, []string{"off-1", "off-2"}, day("2024-05-01"), ""))
}

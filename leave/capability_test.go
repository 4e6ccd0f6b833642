package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

var roles = []generic.Role{generic.RoleSubordinate, generic.RoleSergeant, generic.RoleAdmin}

// expectedCapability restates the capability table row by row.
func expectedCapability(role generic.Role, op leave.Operation, s leave.State) bool {
	validated := s.Approval == leave.ApprovalValidatedByAdmin
	switch op {
	case leave.OpCreate:
		return true
	case leave.OpSergeantDecision:
		return role == generic.RoleSergeant && s.Approval == leave.ApprovalSentToSergeant
	case leave.OpAdminDecision:
		return role == generic.RoleAdmin && s.Approval == leave.ApprovalApprovedBySergeant
	case leave.OpExchange, leave.OpDelete:
		return role != generic.RoleSubordinate && validated && s.Status == leave.StatusActive
	case leave.OpRestore:
		return role == generic.RoleAdmin && validated &&
			(s.Status == leave.StatusExchanged || s.Status == leave.StatusDeleted)
	case leave.OpComment:
		return s.Status == leave.StatusActive &&
			s.Approval != leave.ApprovalDeniedBySergeant &&
			s.Approval != leave.ApprovalRejectedByAdmin
	}
	return false
}

func TestCanPerform_ExhaustiveMatrix(t *testing.T) {
	// GIVEN: every role × operation × approval × status combination
	// THEN: CanPerform agrees with the capability table
	checked := 0
	for _, role := range roles {
		for _, op := range leave.Operations {
			for _, a := range leave.Approvals {
				for _, st := range leave.Statuses {
					s := leave.State{Approval: a, Status: st}
					assert.Equal(t, expectedCapability(role, op, s), leave.CanPerform(role, op, s),
						"role=%s op=%s state=%s", role, op, s)
					checked++
				}
			}
		}
	}
	assert.Equal(t, 3*7*6*4, checked)
}

func TestCanPerform_UnknownRoleCannotDoAnything(t *testing.T) {
	for _, op := range leave.Operations {
		for _, a := range leave.Approvals {
			for _, st := range leave.Statuses {
				assert.False(t, leave.CanPerform("GUEST", op, leave.State{Approval: a, Status: st}))
			}
		}
	}
}

func TestCanPerform_UnknownOperation(t *testing.T) {
	s := leave.State{Approval: leave.ApprovalValidatedByAdmin, Status: leave.StatusActive}
	assert.False(t, leave.CanPerform(generic.RoleAdmin, "approve_everything", s))
}

func TestRolePermits(t *testing.T) {
	assert.True(t, leave.RolePermits(generic.RoleSubordinate, leave.OpCreate))
	assert.False(t, leave.RolePermits(generic.RoleSubordinate, leave.OpSergeantDecision))
	assert.False(t, leave.RolePermits(generic.RoleAdmin, leave.OpSergeantDecision))
	assert.False(t, leave.RolePermits(generic.RoleSergeant, leave.OpAdminDecision))
	assert.False(t, leave.RolePermits(generic.RoleSergeant, leave.OpRestore))
	assert.True(t, leave.RolePermits(generic.RoleSergeant, leave.OpExchange))
}

func TestSergeantDecision_OnlyFromSentToSergeant(t *testing.T) {
	// Whatever the verdict, a record not waiting for the sergeant is a state conflict.
	for _, a := range leave.Approvals {
		s := leave.State{Approval: a, Status: leave.StatusActive}
		assert.Equal(t, a == leave.ApprovalSentToSergeant, leave.StateAllows(leave.OpSergeantDecision, s), "approval %s", a)
	}
}

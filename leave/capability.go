package leave

import (
	"slices"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// OPERATIONS
// =============================================================================

type Operation string

const (
	OpCreate           Operation = "create"
	OpSergeantDecision Operation = "sergeant_decision"
	OpAdminDecision    Operation = "admin_decision"
	OpExchange         Operation = "exchange"
	OpDelete           Operation = "delete"
	OpRestore          Operation = "restore"
	OpComment          Operation = "comment"
)

var Operations = []Operation{
	OpCreate,
	OpSergeantDecision,
	OpAdminDecision,
	OpExchange,
	OpDelete,
	OpRestore,
	OpComment,
}

// =============================================================================
// CAPABILITY MATRIX
// =============================================================================

var rolePermissions = map[Operation][]generic.Role{
	OpCreate:           {generic.RoleSubordinate, generic.RoleSergeant, generic.RoleAdmin},
	OpSergeantDecision: {generic.RoleSergeant},
	OpAdminDecision:    {generic.RoleAdmin},
	OpExchange:         {generic.RoleSergeant, generic.RoleAdmin},
	OpDelete:           {generic.RoleSergeant, generic.RoleAdmin},
	OpRestore:          {generic.RoleAdmin},
	OpComment:          {generic.RoleSubordinate, generic.RoleSergeant, generic.RoleAdmin},
}

// RolePermits reports whether role may invoke op at all.
func RolePermits(role generic.Role, op Operation) bool {
	return slices.Contains(rolePermissions[op], role)
}

// StateAllows reports whether a record in state s satisfies the precondition
// of op. Create has no prior state and is always allowed.
func StateAllows(op Operation, s State) bool {
	switch op {
	case OpCreate:
		return true
	case OpSergeantDecision:
		return s.Approval == ApprovalSentToSergeant
	case OpAdminDecision:
		return s.Approval == ApprovalApprovedBySergeant
	case OpExchange, OpDelete:
		return s.Status == StatusActive && s.Approval == ApprovalValidatedByAdmin
	case OpRestore:
		return s.Approval == ApprovalValidatedByAdmin &&
			(s.Status == StatusExchanged || s.Status == StatusDeleted)
	case OpComment:
		return s.Status == StatusActive && !s.Approval.Terminal()
	}
	return false
}

// CanPerform is the single capability check: role gate and state gate.
func CanPerform(role generic.Role, op Operation, s State) bool {
	return RolePermits(role, op) && StateAllows(op, s)
}

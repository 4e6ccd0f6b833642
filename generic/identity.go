package generic

import "context"

// =============================================================================
// ROLES AND ACTORS
// =============================================================================

// Role is the role carried by the user performing an operation.
type Role string

const (
	RoleSubordinate Role = "SUBORDINATE"
	RoleSergeant    Role = "SERGEANT"
	RoleAdmin       Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSubordinate, RoleSergeant, RoleAdmin:
		return true
	}
	return false
}

// Actor is whoever invokes an operation. OfficerID links the account to its
// officer record; it may be empty for pure administrative accounts.
type Actor struct {
	ID        string
	Name      string
	Role      Role
	OfficerID string
}

// ActorFromUser builds the acting identity of a user account.
func ActorFromUser(u User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: u.Role, OfficerID: u.OfficerID}
}

// =============================================================================
// OFFICERS AND USERS
// =============================================================================

// Officer is a unit member tracked for leave and scheduling. Officers are
// never hard-deleted; deactivation clears Active.
type Officer struct {
	ID           string
	Name         string
	Registration string // service-registration number
	Rank         string
	Platoon      string
	Active       bool
}

// User is a login account. Sergeant accounts receive the approval requests
// of their platoon.
type User struct {
	ID        string
	Name      string
	Role      Role
	OfficerID string
	Platoon   string
	Active    bool
}

// Directory resolves officers and user accounts. Lookups of a missing
// officer return a *NotFoundError; the user lookups return nil, nil when
// nothing matches.
type Directory interface {
	FindOfficer(ctx context.Context, id string) (*Officer, error)
	FindUser(ctx context.Context, id string) (*User, error)
	FindActiveSergeantForPlatoon(ctx context.Context, platoon string) (*User, error)
	FindUsersByRole(ctx context.Context, role Role) ([]User, error)
	FindUserByOfficerID(ctx context.Context, officerID string) (*User, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// DIRECTORY (generic.Directory interface)
// =============================================================================

// SaveOfficer inserts or updates an officer. Officers are never deleted;
// clear Active to deactivate.
func (c *conn) SaveOfficer(ctx context.Context, o generic.Officer) error {
	query := `
		INSERT INTO officers (id, name, registration, rank, platoon, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			registration = excluded.registration,
			rank = excluded.rank,
			platoon = excluded.platoon,
			active = excluded.active
	`
	_, err := c.q.ExecContext(ctx, query,
		o.ID, o.Name, o.Registration, o.Rank, o.Platoon, boolInt(o.Active),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save officer: %w", err)
	}
	return nil
}

// FindOfficer returns a *generic.NotFoundError for an unknown id.
func (c *conn) FindOfficer(ctx context.Context, id string) (*generic.Officer, error) {
	var o generic.Officer
	var active int
	err := c.q.QueryRowContext(ctx,
		"SELECT id, name, registration, rank, platoon, active FROM officers WHERE id = ?", id,
	).Scan(&o.ID, &o.Name, &o.Registration, &o.Rank, &o.Platoon, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "officer", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load officer: %w", err)
	}
	o.Active = active == 1
	return &o, nil
}

// ListOfficers returns officers ordered by platoon and name. Inactive
// officers are included only when includeInactive is set.
func (c *conn) ListOfficers(ctx context.Context, includeInactive bool) ([]generic.Officer, error) {
	query := "SELECT id, name, registration, rank, platoon, active FROM officers"
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY platoon, name"

	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query officers: %w", err)
	}
	defer rows.Close()

	var officers []generic.Officer
	for rows.Next() {
		var o generic.Officer
		var active int
		if err := rows.Scan(&o.ID, &o.Name, &o.Registration, &o.Rank, &o.Platoon, &active); err != nil {
			return nil, fmt.Errorf("failed to scan officer: %w", err)
		}
		o.Active = active == 1
		officers = append(officers, o)
	}
	return officers, rows.Err()
}

// SaveUser inserts or updates a user account.
func (c *conn) SaveUser(ctx context.Context, u generic.User) error {
	query := `
		INSERT INTO users (id, name, role, officer_id, platoon, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			officer_id = excluded.officer_id,
			platoon = excluded.platoon,
			active = excluded.active
	`
	_, err := c.q.ExecContext(ctx, query,
		u.ID, u.Name, string(u.Role), nullString(u.OfficerID), u.Platoon, boolInt(u.Active),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

const userColumns = "id, name, role, officer_id, platoon, active"

// FindUser returns nil, nil for an unknown id.
func (c *conn) FindUser(ctx context.Context, id string) (*generic.User, error) {
	return c.findUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// FindUserByOfficerID returns the active account linked to an officer.
func (c *conn) FindUserByOfficerID(ctx context.Context, officerID string) (*generic.User, error) {
	return c.findUser(ctx,
		"SELECT "+userColumns+" FROM users WHERE officer_id = ? AND active = 1 ORDER BY created_at LIMIT 1",
		officerID)
}

// FindActiveSergeantForPlatoon returns the platoon's sergeant account, if any.
func (c *conn) FindActiveSergeantForPlatoon(ctx context.Context, platoon string) (*generic.User, error) {
	if platoon == "" {
		return nil, nil
	}
	return c.findUser(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? AND platoon = ? AND active = 1 ORDER BY created_at LIMIT 1",
		string(generic.RoleSergeant), platoon)
}

// FindUsersByRole returns every account with role, active or not.
func (c *conn) FindUsersByRole(ctx context.Context, role generic.Role) ([]generic.User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE role = ? ORDER BY name", string(role))
}

// ListUsers returns every account.
func (c *conn) ListUsers(ctx context.Context) ([]generic.User, error) {
	return c.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY role, name")
}

func (c *conn) findUser(ctx context.Context, query string, args ...any) (*generic.User, error) {
	u, err := scanUser(c.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *conn) queryUsers(ctx context.Context, query string, args ...any) ([]generic.User, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []generic.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(s scanner) (generic.User, error) {
	var (
		u         generic.User
		role      string
		officerID sql.NullString
		active    int
	)
	if err := s.Scan(&u.ID, &u.Name, &role, &officerID, &u.Platoon, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, err
		}
		return u, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Role = generic.Role(role)
	u.OfficerID = officerID.String
	u.Active = active == 1
	return u, nil
}

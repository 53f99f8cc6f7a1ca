// Package ids defines the canonical typed identifiers for users and tenants.
// External input (tokens, JSON bodies, database rows) is parsed into these types
// once at the boundary; the rest of the code never compares raw strings against
// structured identifiers.
package ids

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// UserID identifies a user. The zero value is invalid.
type UserID struct {
	id uuid.UUID
}

// TenantID identifies a tenant. The zero value means "no tenant".
type TenantID struct {
	id uuid.UUID
}

// NewUserID returns a new random UserID.
func NewUserID() UserID {
	return UserID{id: uuid.New()}
}

// NewTenantID returns a new random TenantID.
func NewTenantID() TenantID {
	return TenantID{id: uuid.New()}
}

// ParseUserID parses s as a user identifier. Returns an error for anything that
// is not a canonical UUID string.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("parse user id %q: %w", s, err)
	}
	if u == uuid.Nil {
		return UserID{}, fmt.Errorf("parse user id: nil uuid")
	}
	return UserID{id: u}, nil
}

// ParseTenantID parses s as a tenant identifier. Returns an error for anything
// that is not a canonical UUID string.
func ParseTenantID(s string) (TenantID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TenantID{}, fmt.Errorf("parse tenant id %q: %w", s, err)
	}
	if u == uuid.Nil {
		return TenantID{}, fmt.Errorf("parse tenant id: nil uuid")
	}
	return TenantID{id: u}, nil
}

func (u UserID) String() string { return u.id.String() }

// IsZero reports whether u is the zero (invalid) identifier.
func (u UserID) IsZero() bool { return u.id == uuid.Nil }

// Value implements driver.Valuer so the typed form goes to the database directly.
func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, fmt.Errorf("user id: zero value is not persistable")
	}
	return u.id.String(), nil
}

// Scan implements sql.Scanner.
func (u *UserID) Scan(src any) error {
	var raw uuid.UUID
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("scan user id: %w", err)
	}
	u.id = raw
	return nil
}

// String formats the identifier; the zero ("no tenant") value formats as the
// empty string.
func (t TenantID) String() string {
	if t.IsZero() {
		return ""
	}
	return t.id.String()
}

// IsZero reports whether t is the zero ("no tenant") identifier.
func (t TenantID) IsZero() bool { return t.id == uuid.Nil }

// Value implements driver.Valuer. The zero value maps to SQL NULL, matching the
// nullable tenant_id columns.
func (t TenantID) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.id.String(), nil
}

// Scan implements sql.Scanner. SQL NULL scans to the zero value.
func (t *TenantID) Scan(src any) error {
	if src == nil {
		t.id = uuid.Nil
		return nil
	}
	var raw uuid.UUID
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("scan tenant id: %w", err)
	}
	t.id = raw
	return nil
}

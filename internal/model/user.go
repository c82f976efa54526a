package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStatus is the local account status.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusPending  UserStatus = "pending"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByProviderID(ctx context.Context, providerID string) (User, error)
	// ListLinked returns only rows with a non-null provider id. Locally
	// created accounts that were never linked to the provider are invisible
	// to the sync engine and must never be touched by it.
	ListLinked(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) error
	CountLinked(ctx context.Context) (int, error)
}

// RoleLinkStore defines persistence operations for role profile rows.
type RoleLinkStore interface {
	// Ensure inserts the profile row for (role, userID) if absent.
	// A pre-existing row is a silent no-op.
	Ensure(ctx context.Context, role Role, userID uuid.UUID, companyID *int64) error
}

// User represents a stored user account.
type User struct {
	ID          uuid.UUID
	ProviderID  *string
	Email       string
	DisplayName string
	Role        Role
	CompanyID   *int64
	Status      UserStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanonicalUser is the normalized projection of one provider record,
// computed fresh every run and never persisted.
type CanonicalUser struct {
	ProviderID  string
	Email       string
	DisplayName string
	Role        Role
	CompanyID   *int64
	Status      UserStatus
	Groups      []string
}

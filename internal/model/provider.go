package model

import "context"

// LifecycleStatus is the provider-side account lifecycle state.
type LifecycleStatus string

const (
	LifecycleUnconfirmed         LifecycleStatus = "UNCONFIRMED"
	LifecycleConfirmed           LifecycleStatus = "CONFIRMED"
	LifecycleForceChangePassword LifecycleStatus = "FORCE_CHANGE_PASSWORD"
	LifecycleResetRequired       LifecycleStatus = "RESET_REQUIRED"
	LifecycleArchived            LifecycleStatus = "ARCHIVED"
	LifecycleUnknown             LifecycleStatus = "UNKNOWN"
)

// ProviderUser is one raw user record fetched from the identity provider.
type ProviderUser struct {
	ID         string
	Attributes map[string]string
	Enabled    bool
	Status     LifecycleStatus
	Groups     []string
}

// PoolInfo describes the configured user pool.
type PoolInfo struct {
	ID             string
	Name           string
	EstimatedUsers int
}

// IdentityProvider is the outbound surface required of the managed identity
// service. Implementations must return ErrProviderUnavailable (wrapped) when
// no page can be fetched at all, and ErrNotFound from GetUser for unknown ids.
type IdentityProvider interface {
	// FetchAll retrieves the complete user population, groups included.
	FetchAll(ctx context.Context) ([]ProviderUser, error)
	// FetchPage retrieves a single page. An empty cursor requests the first
	// page; an empty returned cursor means the population is exhausted.
	FetchPage(ctx context.Context, cursor string) ([]ProviderUser, string, error)
	// GetUser retrieves a single user by provider id, groups included.
	GetUser(ctx context.Context, providerID string) (ProviderUser, error)
	// DescribePool returns metadata about the configured user pool.
	DescribePool(ctx context.Context) (PoolInfo, error)
}

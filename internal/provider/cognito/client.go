package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/eduplex/identity-sync/internal/logger"
	"github.com/eduplex/identity-sync/internal/model"
)

// Internal adapter interface to enable mocking without a real user pool.
// *cognitoidentityprovider.Client satisfies it directly.
type cognitoAPI interface {
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cip.AdminListGroupsForUserInput, optFns ...func(*cip.Options)) (*cip.AdminListGroupsForUserOutput, error)
	DescribeUserPool(ctx context.Context, params *cip.DescribeUserPoolInput, optFns ...func(*cip.Options)) (*cip.DescribeUserPoolOutput, error)
}

// Options configures a Client. Zero values fall back to safe defaults.
type Options struct {
	UserPoolID     string
	PageSize       int32
	PageDelay      time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
}

var _ model.IdentityProvider = (*Client)(nil)

// Client talks to one Cognito user pool. It is an explicitly constructed
// value; nothing in this package holds global state.
type Client struct {
	api    cognitoAPI
	opts   Options
	logger *logger.Logger
}

// NewClient creates a provider client over an AWS Cognito API client.
func NewClient(api cognitoAPI, opts Options, logger *logger.Logger) *Client {
	if opts.PageSize <= 0 || opts.PageSize > 60 {
		// ListUsers caps Limit at 60.
		opts.PageSize = 60
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = 100 * time.Millisecond
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	return &Client{
		api:    api,
		opts:   opts,
		logger: logger,
	}
}

// FetchAll walks the full paginated population and materializes it,
// groups included. Any page failure aborts the fetch: a partial population
// must never feed orphan detection.
func (c *Client) FetchAll(ctx context.Context) ([]model.ProviderUser, error) {
	var all []model.ProviderUser
	var cursor string

	for page := 0; ; page++ {
		users, next, err := c.FetchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", model.ErrProviderUnavailable, page, err)
		}
		all = append(all, users...)

		if next == "" {
			break
		}
		cursor = next
	}

	c.logger.Debug("Cognito client: population fetched", "users", len(all))
	return all, nil
}

// FetchPage retrieves one page of users with their group memberships.
// Throttling retries the same page; the cursor is never skipped.
func (c *Client) FetchPage(ctx context.Context, cursor string) ([]model.ProviderUser, string, error) {
	input := &cip.ListUsersInput{
		UserPoolId: aws.String(c.opts.UserPoolID),
		Limit:      aws.Int32(c.opts.PageSize),
	}
	if cursor != "" {
		input.PaginationToken = aws.String(cursor)

		// Small inter-page delay to stay under the pool's request quota.
		select {
		case <-time.After(c.opts.PageDelay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	var out *cip.ListUsersOutput
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		out, callErr = c.api.ListUsers(callCtx, input)
		return callErr
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]model.ProviderUser, 0, len(out.Users))
	for _, u := range out.Users {
		user := userFromListEntry(u)

		groups, err := c.listGroups(ctx, user.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list groups for %s: %w", user.ID, err)
		}
		user.Groups = groups

		users = append(users, user)
	}

	return users, aws.ToString(out.PaginationToken), nil
}

// GetUser retrieves a single user by provider id, groups included.
func (c *Client) GetUser(ctx context.Context, providerID string) (model.ProviderUser, error) {
	input := &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.opts.UserPoolID),
		Username:   aws.String(providerID),
	}

	var out *cip.AdminGetUserOutput
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		out, callErr = c.api.AdminGetUser(callCtx, input)
		return callErr
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return model.ProviderUser{}, model.ErrNotFound
		}
		return model.ProviderUser{}, fmt.Errorf("failed to get user %s: %w", providerID, err)
	}

	user := model.ProviderUser{
		ID:         aws.ToString(out.Username),
		Attributes: attributeMap(out.UserAttributes),
		Enabled:    out.Enabled,
		Status:     lifecycleStatus(out.UserStatus),
	}

	groups, err := c.listGroups(ctx, user.ID)
	if err != nil {
		return model.ProviderUser{}, fmt.Errorf("failed to list groups for %s: %w", user.ID, err)
	}
	user.Groups = groups

	return user, nil
}

// DescribePool returns metadata about the configured user pool.
func (c *Client) DescribePool(ctx context.Context) (model.PoolInfo, error) {
	input := &cip.DescribeUserPoolInput{
		UserPoolId: aws.String(c.opts.UserPoolID),
	}

	var out *cip.DescribeUserPoolOutput
	err := c.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		out, callErr = c.api.DescribeUserPool(callCtx, input)
		return callErr
	})
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("%w: failed to describe user pool: %w", model.ErrProviderUnavailable, err)
	}
	if out.UserPool == nil {
		return model.PoolInfo{}, fmt.Errorf("%w: describe user pool returned no pool", model.ErrProviderUnavailable)
	}

	return model.PoolInfo{
		ID:             aws.ToString(out.UserPool.Id),
		Name:           aws.ToString(out.UserPool.Name),
		EstimatedUsers: int(out.UserPool.EstimatedNumberOfUsers),
	}, nil
}

func (c *Client) listGroups(ctx context.Context, providerID string) ([]string, error) {
	var groups []string
	var next *string

	for {
		input := &cip.AdminListGroupsForUserInput{
			UserPoolId: aws.String(c.opts.UserPoolID),
			Username:   aws.String(providerID),
			NextToken:  next,
		}

		var out *cip.AdminListGroupsForUserOutput
		err := c.withRetry(ctx, func(callCtx context.Context) error {
			var callErr error
			out, callErr = c.api.AdminListGroupsForUser(callCtx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, g := range out.Groups {
			groups = append(groups, aws.ToString(g.GroupName))
		}

		if out.NextToken == nil || *out.NextToken == "" {
			return groups, nil
		}
		next = out.NextToken
	}
}

// withRetry runs one provider call under the per-call timeout, backing off
// and retrying only on throttling signals. Validation and auth errors
// surface immediately.
func (c *Client) withRetry(ctx context.Context, call func(ctx context.Context) error) error {
	backoff := 500 * time.Millisecond

	var err error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		err = call(callCtx)
		cancel()

		if err == nil || !isThrottle(err) {
			return err
		}

		c.logger.Warn("Cognito client: throttled, backing off",
			"attempt", attempt+1,
			"backoff", backoff.String())

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}

	return fmt.Errorf("throttled after %d attempts: %w", c.opts.MaxRetries+1, err)
}

func isThrottle(err error) bool {
	var tooMany *types.TooManyRequestsException
	return errors.As(err, &tooMany)
}

func userFromListEntry(u types.UserType) model.ProviderUser {
	return model.ProviderUser{
		ID:         aws.ToString(u.Username),
		Attributes: attributeMap(u.Attributes),
		Enabled:    u.Enabled,
		Status:     lifecycleStatus(u.UserStatus),
	}
}

func attributeMap(attrs []types.AttributeType) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return m
}

func lifecycleStatus(s types.UserStatusType) model.LifecycleStatus {
	switch s {
	case types.UserStatusTypeUnconfirmed:
		return model.LifecycleUnconfirmed
	case types.UserStatusTypeConfirmed:
		return model.LifecycleConfirmed
	case types.UserStatusTypeForceChangePassword:
		return model.LifecycleForceChangePassword
	case types.UserStatusTypeResetRequired:
		return model.LifecycleResetRequired
	case types.UserStatusTypeArchived:
		return model.LifecycleArchived
	default:
		return model.LifecycleUnknown
	}
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/eduplex/identity-sync/internal/logger"
	"github.com/eduplex/identity-sync/internal/model"
)

// Sync reconciles the local user store with the identity provider's
// population. Runs are serialized by an internal single-flight guard;
// a second run requested while one is active fails with ErrSyncInProgress.
type Sync struct {
	provider  model.IdentityProvider
	userStore model.UserStore
	roleLinks model.RoleLinkStore
	reports   model.ReportArchive
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewSync creates the reconciliation service. reports may be nil, in which
// case run results are not archived.
func NewSync(
	provider model.IdentityProvider,
	userStore model.UserStore,
	roleLinks model.RoleLinkStore,
	reports model.ReportArchive,
	logger *logger.Logger,
) *Sync {
	return &Sync{
		provider:  provider,
		userStore: userStore,
		roleLinks: roleLinks,
		reports:   reports,
		logger:    logger,
	}
}

// RunFullSync performs a diff-based reconciliation: fetches the full
// provider population, creates or updates every local record, then
// deactivates local records that disappeared from the provider.
// A fatal error (provider or snapshot unreachable) returns with no partial
// result; per-record failures are collected into the result instead.
func (s *Sync) RunFullSync(ctx context.Context) (model.SyncResult, error) {
	if !s.mu.TryLock() {
		return model.SyncResult{}, model.ErrSyncInProgress
	}
	defer s.mu.Unlock()

	rep := newRunReporter()
	s.logger.Info("Sync service: starting full sync", "run_id", rep.runID)

	providerUsers, err := s.provider.FetchAll(ctx)
	if err != nil {
		s.logger.Error("Sync service: failed to fetch provider population",
			"run_id", rep.runID,
			"error", err.Error())
		return model.SyncResult{}, fmt.Errorf("failed to fetch provider population: %w", err)
	}

	locals, err := s.userStore.ListLinked(ctx)
	if err != nil {
		s.logger.Error("Sync service: failed to load local snapshot",
			"run_id", rep.runID,
			"error", err.Error())
		return model.SyncResult{}, fmt.Errorf("failed to load local snapshot: %w", err)
	}

	snapshot := make(map[string]model.User, len(locals))
	for _, u := range locals {
		if u.ProviderID != nil {
			snapshot[*u.ProviderID] = u
		}
	}
	rep.setPopulation(len(providerUsers), len(snapshot))

	processed := make(map[string]struct{}, len(providerUsers))
	for _, pu := range providerUsers {
		if ok := s.processRecord(ctx, pu, snapshot, rep); ok {
			processed[pu.ID] = struct{}{}
		}
	}

	s.deactivateOrphans(ctx, snapshot, processed, rep)

	result := rep.result()
	s.logger.Info("Sync service: full sync finished",
		"run_id", result.RunID,
		"created", result.Created,
		"updated", result.Updated,
		"deactivated", result.Deactivated,
		"errors", len(result.Errors))

	s.archive(ctx, result)

	return result, nil
}

// processRecord reconciles one provider record against the snapshot.
// Every failure is caught here so a single bad record never aborts the run.
// Returns true when the record's create/update outcome succeeded.
func (s *Sync) processRecord(ctx context.Context, pu model.ProviderUser, snapshot map[string]model.User, rep *runReporter) bool {
	c, err := extractUser(pu)
	if err != nil {
		rep.recordError(pu.ID, pu.Attributes["email"], "failed to extract user attributes", err)
		return false
	}

	local, exists := snapshot[c.ProviderID]
	if !exists {
		created, err := s.createUser(ctx, c)
		if err != nil {
			rep.recordError(c.ProviderID, c.Email, "failed to create user", err)
			return false
		}
		local = created
		rep.recordCreate(c)
	} else if fields := driftFields(local, c); len(fields) > 0 {
		local.Email = c.Email
		local.DisplayName = c.DisplayName
		local.Status = c.Status

		updated, err := s.userStore.Update(ctx, local)
		if err != nil {
			rep.recordError(c.ProviderID, c.Email, "failed to update user", err)
			return false
		}
		local = updated
		rep.recordUpdate(c, fields)
	}

	// Role-link bookkeeping is secondary: a failure here is reported but
	// does not undo the record's own outcome.
	if c.Role.HasProfile() {
		if err := s.roleLinks.Ensure(ctx, c.Role, local.ID, c.CompanyID); err != nil {
			s.logger.Error("Sync service: failed to ensure role link",
				"provider_id", c.ProviderID,
				"role", string(c.Role),
				"error", err.Error())
			rep.recordError(c.ProviderID, c.Email, "failed to ensure "+string(c.Role)+" profile", err)
		}
	}

	return true
}

func (s *Sync) createUser(ctx context.Context, c model.CanonicalUser) (model.User, error) {
	providerID := c.ProviderID
	return s.userStore.Create(ctx, model.User{
		ID:          uuid.New(),
		ProviderID:  &providerID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		Role:        c.Role,
		CompanyID:   c.CompanyID,
		Status:      c.Status,
	})
}

// deactivateOrphans flips still-active local records whose provider id was
// not seen in the sweep to inactive. Already-inactive orphans are left
// untouched so repeated runs stay idempotent.
func (s *Sync) deactivateOrphans(ctx context.Context, snapshot map[string]model.User, processed map[string]struct{}, rep *runReporter) {
	var orphanIDs []string
	for providerID := range snapshot {
		if _, ok := processed[providerID]; !ok {
			orphanIDs = append(orphanIDs, providerID)
		}
	}
	sort.Strings(orphanIDs)

	for _, providerID := range orphanIDs {
		orphan := snapshot[providerID]
		if orphan.Status != model.StatusActive {
			continue
		}

		if err := s.userStore.UpdateStatus(ctx, orphan.ID, model.StatusInactive); err != nil {
			rep.recordError(providerID, orphan.Email, "failed to deactivate orphan", err)
			continue
		}
		rep.recordDeactivate(orphan, "not found in provider")
	}
}

// RunPaginatedFullSync walks the provider population page by page and
// performs the create/update/role-link steps per record without holding a
// local snapshot, so it never deactivates anyone. Meant for populations too
// large to materialize.
func (s *Sync) RunPaginatedFullSync(ctx context.Context) (model.PaginatedSyncResult, error) {
	if !s.mu.TryLock() {
		return model.PaginatedSyncResult{Error: model.ErrSyncInProgress.Error()}, model.ErrSyncInProgress
	}
	defer s.mu.Unlock()

	s.logger.Info("Sync service: starting paginated sync")

	processedTotal := 0
	failed := 0
	var cursor string

	for page := 0; ; page++ {
		users, next, err := s.provider.FetchPage(ctx, cursor)
		if err != nil {
			err = fmt.Errorf("failed to fetch page %d: %w", page, err)
			s.logger.Error("Sync service: paginated sync aborted",
				"page", page,
				"users_processed", processedTotal,
				"error", err.Error())
			return model.PaginatedSyncResult{
				UsersProcessed: processedTotal,
				Error:          err.Error(),
			}, err
		}

		for _, pu := range users {
			if err := s.upsertRecord(ctx, pu); err != nil {
				failed++
				s.logger.Error("Sync service: failed to process record",
					"provider_id", pu.ID,
					"error", err.Error())
				continue
			}
			processedTotal++
		}

		if next == "" {
			break
		}
		cursor = next
	}

	s.logger.Info("Sync service: paginated sync finished",
		"users_processed", processedTotal,
		"failed", failed)

	return model.PaginatedSyncResult{
		Success:        failed == 0,
		UsersProcessed: processedTotal,
	}, nil
}

// upsertRecord is the snapshot-free create/update path used by the
// paginated variant and the single-record repair.
func (s *Sync) upsertRecord(ctx context.Context, pu model.ProviderUser) error {
	c, err := extractUser(pu)
	if err != nil {
		return err
	}

	local, err := s.userStore.GetByProviderID(ctx, c.ProviderID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		local, err = s.createUser(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to get user by provider id: %w", err)
	default:
		if fields := driftFields(local, c); len(fields) > 0 {
			local.Email = c.Email
			local.DisplayName = c.DisplayName
			local.Status = c.Status
			if local, err = s.userStore.Update(ctx, local); err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}
	}

	if c.Role.HasProfile() {
		if err := s.roleLinks.Ensure(ctx, c.Role, local.ID, c.CompanyID); err != nil {
			// Secondary bookkeeping, the user record itself is in place.
			s.logger.Error("Sync service: failed to ensure role link",
				"provider_id", c.ProviderID,
				"role", string(c.Role),
				"error", err.Error())
		}
	}

	return nil
}

// SyncOne repairs a single record by provider id.
func (s *Sync) SyncOne(ctx context.Context, providerID string) (model.SingleSyncResult, error) {
	s.logger.Debug("Sync service: syncing single user", "provider_id", providerID)

	pu, err := s.provider.GetUser(ctx, providerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.SingleSyncResult{Error: "user not found in provider"}, err
		}
		return model.SingleSyncResult{Error: err.Error()}, fmt.Errorf("failed to get provider user: %w", err)
	}

	if err := s.upsertRecord(ctx, pu); err != nil {
		return model.SingleSyncResult{Error: err.Error()}, err
	}

	return model.SingleSyncResult{
		Success: true,
		Message: fmt.Sprintf("user %s synchronized", providerID),
	}, nil
}

// Statistics is a cheap health probe comparing the provider's estimated
// population against the local linked count.
func (s *Sync) Statistics(ctx context.Context) (model.SyncStats, error) {
	pool, err := s.provider.DescribePool(ctx)
	if err != nil {
		return model.SyncStats{}, fmt.Errorf("failed to describe user pool: %w", err)
	}

	localCount, err := s.userStore.CountLinked(ctx)
	if err != nil {
		return model.SyncStats{}, fmt.Errorf("failed to count local users: %w", err)
	}

	return model.SyncStats{
		ProviderUserCount: pool.EstimatedUsers,
		LocalUserCount:    localCount,
		SyncNeeded:        pool.EstimatedUsers != localCount,
	}, nil
}

// TestConnection verifies the provider is reachable and the configured
// user pool exists.
func (s *Sync) TestConnection(ctx context.Context) (model.ConnectionStatus, error) {
	pool, err := s.provider.DescribePool(ctx)
	if err != nil {
		return model.ConnectionStatus{
			Message: "identity provider unreachable: " + err.Error(),
		}, err
	}

	return model.ConnectionStatus{
		Success:  true,
		Message:  fmt.Sprintf("connected to user pool %q (%d users)", pool.Name, pool.EstimatedUsers),
		PoolID:   pool.ID,
		PoolName: pool.Name,
	}, nil
}

// FetchReport retrieves an archived rendered report by run id.
func (s *Sync) FetchReport(ctx context.Context, runID string) (string, error) {
	if s.reports == nil {
		return "", errors.New("report archive is not configured")
	}

	data, err := s.reports.Get(ctx, "runs/"+runID+".txt")
	if err != nil {
		return "", fmt.Errorf("failed to fetch report %s: %w", runID, err)
	}

	return string(data), nil
}

// archive stores the structured result and its rendered summary. Archival
// failures are logged only: the run itself already completed.
func (s *Sync) archive(ctx context.Context, result model.SyncResult) {
	if s.reports == nil {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		s.logger.Error("Sync service: failed to encode run result", "run_id", result.RunID, "error", err.Error())
		return
	}

	key := "runs/" + result.RunID.String()
	if err := s.reports.Put(ctx, key+".json", buf.Bytes()); err != nil {
		s.logger.Error("Sync service: failed to archive run result", "run_id", result.RunID, "error", err.Error())
		return
	}
	if err := s.reports.Put(ctx, key+".txt", []byte(result.Summary())); err != nil {
		s.logger.Error("Sync service: failed to archive run summary", "run_id", result.RunID, "error", err.Error())
	}
}

// driftFields lists the tracked fields whose local value differs from the
// canonical projection.
func driftFields(local model.User, c model.CanonicalUser) []string {
	var fields []string
	if local.Email != c.Email {
		fields = append(fields, "email")
	}
	if local.DisplayName != c.DisplayName {
		fields = append(fields, "displayName")
	}
	if local.Status != c.Status {
		fields = append(fields, "status")
	}
	return fields
}

package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduplex/identity-sync/internal/model"
)

// runReporter accumulates per-record operations, per-record errors and
// running counters for one reconciliation run. Pure bookkeeping; it never
// fails and never touches the store.
type runReporter struct {
	runID         uuid.UUID
	startedAt     time.Time
	providerUsers int
	localUsers    int
	operations    []model.SyncOperation
	errors        []model.SyncError
	created       int
	updated       int
	deactivated   int
}

func newRunReporter() *runReporter {
	return &runReporter{
		runID:     uuid.New(),
		startedAt: time.Now().UTC(),
	}
}

func (r *runReporter) setPopulation(provider, local int) {
	r.providerUsers = provider
	r.localUsers = local
}

func (r *runReporter) recordCreate(c model.CanonicalUser) {
	r.created++
	r.operations = append(r.operations, model.SyncOperation{
		Kind:       model.OpCreate,
		ProviderID: c.ProviderID,
		Email:      c.Email,
		Detail:     "role " + string(c.Role) + ", status " + string(c.Status),
	})
}

func (r *runReporter) recordUpdate(c model.CanonicalUser, fields []string) {
	r.updated++
	r.operations = append(r.operations, model.SyncOperation{
		Kind:       model.OpUpdate,
		ProviderID: c.ProviderID,
		Email:      c.Email,
		Detail:     "changed: " + strings.Join(fields, ", "),
	})
}

func (r *runReporter) recordDeactivate(u model.User, reason string) {
	r.deactivated++
	providerID := ""
	if u.ProviderID != nil {
		providerID = *u.ProviderID
	}
	r.operations = append(r.operations, model.SyncOperation{
		Kind:       model.OpDeactivate,
		ProviderID: providerID,
		Email:      u.Email,
		Detail:     reason,
	})
}

func (r *runReporter) recordError(providerID, email, message string, err error) {
	e := model.SyncError{
		ProviderID: providerID,
		Email:      email,
		Message:    message,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	r.errors = append(r.errors, e)
}

// result seals the run into its structured form. Success means zero errors;
// a run with errors still completed and is distinct from one that never ran.
func (r *runReporter) result() model.SyncResult {
	return model.SyncResult{
		RunID:         r.runID,
		StartedAt:     r.startedAt,
		FinishedAt:    time.Now().UTC(),
		Success:       len(r.errors) == 0,
		ProviderUsers: r.providerUsers,
		LocalUsers:    r.localUsers,
		Created:       r.created,
		Updated:       r.updated,
		Deactivated:   r.deactivated,
		Operations:    r.operations,
		Errors:        r.errors,
	}
}

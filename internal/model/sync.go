package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperationKind tags a single reconciliation action.
type OperationKind string

const (
	OpCreate     OperationKind = "create"
	OpUpdate     OperationKind = "update"
	OpDeactivate OperationKind = "deactivate"
)

// SyncOperation records one action taken against one provider record.
type SyncOperation struct {
	Kind       OperationKind `json:"kind"`
	ProviderID string        `json:"providerId"`
	Email      string        `json:"email"`
	Detail     string        `json:"detail,omitempty"`
}

// SyncError records one per-record failure. The run continues past it.
type SyncError struct {
	ProviderID string `json:"providerId"`
	Email      string `json:"email,omitempty"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

// SyncResult is the outcome of one full reconciliation run.
type SyncResult struct {
	RunID         uuid.UUID       `json:"runId"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	Success       bool            `json:"success"`
	ProviderUsers int             `json:"providerUsers"`
	LocalUsers    int             `json:"localUsers"`
	Created       int             `json:"created"`
	Updated       int             `json:"updated"`
	Deactivated   int             `json:"deactivated"`
	Operations    []SyncOperation `json:"operations"`
	Errors        []SyncError     `json:"errors"`
}

// Summary renders a human-readable report of the run for operational
// dashboards.
func (r SyncResult) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Sync run %s\n", r.RunID)
	fmt.Fprintf(&b, "Started:  %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished: %s\n", r.FinishedAt.Format(time.RFC3339))
	b.WriteString("\n== Identity provider ==\n")
	fmt.Fprintf(&b, "Users found: %d\n", r.ProviderUsers)
	b.WriteString("\n== Local store ==\n")
	fmt.Fprintf(&b, "Linked users found: %d\n", r.LocalUsers)
	b.WriteString("\n== Reconciliation ==\n")
	fmt.Fprintf(&b, "Created:     %d\n", r.Created)
	fmt.Fprintf(&b, "Updated:     %d\n", r.Updated)
	fmt.Fprintf(&b, "Deactivated: %d\n", r.Deactivated)
	fmt.Fprintf(&b, "Errors:      %d\n", len(r.Errors))

	if len(r.Operations) > 0 {
		b.WriteString("\n== Operations ==\n")
		for _, op := range r.Operations {
			fmt.Fprintf(&b, "%-10s %s (%s)", op.Kind, op.Email, op.ProviderID)
			if op.Detail != "" {
				fmt.Fprintf(&b, ": %s", op.Detail)
			}
			b.WriteByte('\n')
		}
	}

	if len(r.Errors) > 0 {
		b.WriteString("\n== Errors ==\n")
		for _, e := range r.Errors {
			who := e.ProviderID
			if e.Email != "" {
				who = e.Email
			}
			fmt.Fprintf(&b, "%s: %s", who, e.Message)
			if e.Detail != "" {
				fmt.Fprintf(&b, " (%s)", e.Detail)
			}
			b.WriteByte('\n')
		}
	}

	if r.Success {
		b.WriteString("\nResult: OK\n")
	} else {
		fmt.Fprintf(&b, "\nResult: completed with %d error(s)\n", len(r.Errors))
	}

	return b.String()
}

// PaginatedSyncResult is the outcome of the page-wise sync variant, which
// performs no orphan detection.
type PaginatedSyncResult struct {
	Success        bool   `json:"success"`
	UsersProcessed int    `json:"usersProcessed"`
	Error          string `json:"error,omitempty"`
}

// SingleSyncResult is the outcome of a single-record repair.
type SingleSyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncStats is a cheap read-only health probe.
type SyncStats struct {
	ProviderUserCount int  `json:"providerUserCount"`
	LocalUserCount    int  `json:"localUserCount"`
	SyncNeeded        bool `json:"syncNeeded"`
}

// ConnectionStatus is the outcome of a provider connectivity check.
type ConnectionStatus struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	PoolID   string `json:"poolId,omitempty"`
	PoolName string `json:"poolName,omitempty"`
}

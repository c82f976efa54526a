package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplex/identity-sync/internal/model"
)

func TestRunReporter_Counters(t *testing.T) {
	rep := newRunReporter()
	rep.setPopulation(5, 3)

	rep.recordCreate(model.CanonicalUser{ProviderID: "u1", Email: "a@school.edu", Role: model.RoleStudent, Status: model.StatusActive})
	rep.recordUpdate(model.CanonicalUser{ProviderID: "u2", Email: "b@school.edu"}, []string{"email", "status"})
	rep.recordDeactivate(model.User{ID: uuid.New(), Email: "c@school.edu"}, "not found in provider")
	rep.recordError("u4", "d@school.edu", "failed to create user", assertErr{})

	result := rep.result()

	assert.False(t, result.Success)
	assert.Equal(t, 5, result.ProviderUsers)
	assert.Equal(t, 3, result.LocalUsers)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Deactivated)
	require.Len(t, result.Operations, 3)
	require.Len(t, result.Errors, 1)

	// Operations keep the order in which they were observed.
	assert.Equal(t, model.OpCreate, result.Operations[0].Kind)
	assert.Equal(t, model.OpUpdate, result.Operations[1].Kind)
	assert.Equal(t, model.OpDeactivate, result.Operations[2].Kind)
	assert.Equal(t, "changed: email, status", result.Operations[1].Detail)
	assert.Equal(t, "boom", result.Errors[0].Detail)
}

func TestRunReporter_SuccessWithoutErrors(t *testing.T) {
	rep := newRunReporter()
	rep.setPopulation(0, 0)

	result := rep.result()

	assert.True(t, result.Success)
	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestSyncResult_Summary(t *testing.T) {
	rep := newRunReporter()
	rep.setPopulation(2, 1)
	rep.recordCreate(model.CanonicalUser{ProviderID: "u1", Email: "a@school.edu", Role: model.RoleTeacher, Status: model.StatusActive})
	rep.recordError("u2", "b@school.edu", "failed to update user", assertErr{})

	summary := rep.result().Summary()

	assert.Contains(t, summary, "== Identity provider ==")
	assert.Contains(t, summary, "Users found: 2")
	assert.Contains(t, summary, "== Local store ==")
	assert.Contains(t, summary, "Linked users found: 1")
	assert.Contains(t, summary, "Created:     1")
	assert.Contains(t, summary, "a@school.edu")
	assert.Contains(t, summary, "b@school.edu: failed to update user")
	assert.Contains(t, summary, "completed with 1 error(s)")
}

func TestSyncResult_SummaryClean(t *testing.T) {
	rep := newRunReporter()
	summary := rep.result().Summary()

	assert.Contains(t, summary, "Result: OK")
	assert.NotContains(t, summary, "== Errors ==")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

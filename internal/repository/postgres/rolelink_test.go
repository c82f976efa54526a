package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplex/identity-sync/internal/model"
)

func TestNewRoleLinkRepository(t *testing.T) {
	db := &Connection{}
	repo := NewRoleLinkRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestRoleTables_CoverDataRoles(t *testing.T) {
	for _, role := range model.DataRoles {
		_, ok := roleTables[role]
		assert.True(t, ok, "role %q must have a profile table", role)
	}

	_, ok := roleTables[model.RoleAdmin]
	assert.False(t, ok, "admin must not have a profile table")
}

func TestRoleLinkRepository_Ensure_UnknownRole(t *testing.T) {
	repo := NewRoleLinkRepository(&Connection{})

	err := repo.Ensure(context.Background(), model.RoleAdmin, uuid.New(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile table")
}

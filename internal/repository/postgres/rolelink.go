package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eduplex/identity-sync/internal/model"
)

var _ model.RoleLinkStore = (*RoleLinkRepository)(nil)

// roleTables maps each data-bearing role to its profile table. The four
// tables are structurally identical, so a single parameterized insert
// serves all of them.
var roleTables = map[model.Role]string{
	model.RoleManager:  "manager_profiles",
	model.RoleDirector: "director_profiles",
	model.RoleTeacher:  "teacher_profiles",
	model.RoleStudent:  "student_profiles",
}

type RoleLinkRepository struct {
	db *Connection
}

func NewRoleLinkRepository(db *Connection) *RoleLinkRepository {
	return &RoleLinkRepository{
		db: db,
	}
}

// Ensure inserts the profile row for (role, userID) if absent. A pre-existing
// row is a silent no-op, so the call is safe to repeat every run.
func (r *RoleLinkRepository) Ensure(ctx context.Context, role model.Role, userID uuid.UUID, companyID *int64) error {
	table, ok := roleTables[role]
	if !ok {
		return fmt.Errorf("role %q has no profile table", role)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, company_id)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO NOTHING`, table)

	if _, err := r.db.Exec(ctx, query, uuid.New(), userID, companyID); err != nil {
		return fmt.Errorf("failed to ensure %s row: %w", table, err)
	}

	return nil
}

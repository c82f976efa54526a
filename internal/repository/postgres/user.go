package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/eduplex/identity-sync/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (model.User, error) {
	var user model.User
	query := `SELECT id, provider_id, email, display_name, role, company_id, status, created_at, updated_at
			  FROM users WHERE provider_id = $1`

	err := r.db.QueryRow(ctx, query, providerID).Scan(
		&user.ID, &user.ProviderID, &user.Email, &user.DisplayName, &user.Role,
		&user.CompanyID, &user.Status, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by provider id: %w", err)
	}

	return user, nil
}

// ListLinked returns every user linked to a provider record. Rows with a null
// provider_id are locally created accounts and stay out of the sync engine.
func (r *UserRepository) ListLinked(ctx context.Context) ([]model.User, error) {
	query := `SELECT id, provider_id, email, display_name, role, company_id, status, created_at, updated_at
			  FROM users WHERE provider_id IS NOT NULL`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID, &user.ProviderID, &user.Email, &user.DisplayName, &user.Role,
			&user.CompanyID, &user.Status, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read linked users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, provider_id, email, display_name, role, company_id, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			  RETURNING id, provider_id, email, display_name, role, company_id, status, created_at, updated_at`

	var savedUser model.User
	err := r.db.QueryRow(ctx, query,
		user.ID, user.ProviderID, user.Email, user.DisplayName, user.Role,
		user.CompanyID, user.Status,
	).Scan(
		&savedUser.ID, &savedUser.ProviderID, &savedUser.Email, &savedUser.DisplayName,
		&savedUser.Role, &savedUser.CompanyID, &savedUser.Status, &savedUser.CreatedAt, &savedUser.UpdatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return savedUser, nil
}

// Update writes the drift-tracked fields and bumps updated_at.
func (r *UserRepository) Update(ctx context.Context, user model.User) (model.User, error) {
	query := `UPDATE users SET email = $2, display_name = $3, status = $4, updated_at = now()
			  WHERE id = $1
			  RETURNING id, provider_id, email, display_name, role, company_id, status, created_at, updated_at`

	var savedUser model.User
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.DisplayName, user.Status,
	).Scan(
		&savedUser.ID, &savedUser.ProviderID, &savedUser.Email, &savedUser.DisplayName,
		&savedUser.Role, &savedUser.CompanyID, &savedUser.Status, &savedUser.CreatedAt, &savedUser.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return savedUser, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	query := `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) CountLinked(ctx context.Context) (int, error) {
	var count int
	query := `SELECT count(*) FROM users WHERE provider_id IS NOT NULL`

	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count linked users: %w", err)
	}

	return count, nil
}

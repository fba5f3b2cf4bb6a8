package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user and returns the created row.
func (r *Repository) Create(ctx context.Context, email, username, passwordHash string) (*models.User, error) {
	var u models.User
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, is_admin)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, email, username, is_admin, created_at
	`, email, username, passwordHash)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, is_admin, created_at
		FROM users WHERE email = $1
	`, email)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &passwordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &u, passwordHash, nil
}

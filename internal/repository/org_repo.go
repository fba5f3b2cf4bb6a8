package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type OrgRepo struct {
	pool *pgxpool.Pool
}

func NewOrgRepo(pool *pgxpool.Pool) *OrgRepo {
	return &OrgRepo{pool: pool}
}

// MemberRole returns the user's role within the organization, or "" if the
// user is not a member.
func (r *OrgRepo) MemberRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	var role string
	err := r.pool.QueryRow(ctx, `
		SELECT role FROM organization_users
		WHERE organization_id = $1 AND user_id = $2
	`, orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return role, err
}

// FirstOwnedOrg returns the newest organization the user owns, or nil.
func (r *OrgRepo) FirstOwnedOrg(ctx context.Context, userID uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.name, o.created_at
		FROM organizations o
		JOIN organization_users ou ON ou.organization_id = o.id
		WHERE ou.user_id = $1 AND ou.role = $2
		ORDER BY o.created_at DESC
		LIMIT 1
	`, userID, models.OrgRoleOwner).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// AddMember inserts a membership row; idempotent on the composite key.
func (r *OrgRepo) AddMember(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organization_users (user_id, organization_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, organization_id) DO NOTHING
	`, userID, orgID, role)
	return err
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ollysocial/backend/internal/models"
)

type AutoConfigRepo struct {
	pool *pgxpool.Pool
}

func NewAutoConfigRepo(pool *pgxpool.Pool) *AutoConfigRepo {
	return &AutoConfigRepo{pool: pool}
}

const autoConfigColumns = `id, user_id, license_key_id, platform, is_enabled, time_interval, actions,
	posts_per_day, hashtags, use_brand_voice, feed_likes, feed_comments, prompt_mode, keyword_targets,
	created_at, updated_at`

func scanAutoConfig(row pgx.Row) (*models.AutoEngageConfig, error) {
	var c models.AutoEngageConfig
	err := row.Scan(&c.ID, &c.UserID, &c.LicenseKeyID, &c.Platform, &c.IsEnabled, &c.TimeInterval, &c.Actions,
		&c.PostsPerDay, &c.Hashtags, &c.UseBrandVoice, &c.FeedLikes, &c.FeedComments, &c.PromptMode, &c.KeywordTargets,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByUserAndPlatform returns the config, or nil if the user has none for
// the platform.
func (r *AutoConfigRepo) GetByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform string) (*models.AutoEngageConfig, error) {
	c, err := scanAutoConfig(r.pool.QueryRow(ctx, `
		SELECT `+autoConfigColumns+` FROM auto_engage_configs
		WHERE user_id = $1 AND platform = $2
	`, userID, platform))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// Upsert creates or replaces the (user, platform) config. The unique
// constraint makes concurrent first-reads converge on one row.
func (r *AutoConfigRepo) Upsert(ctx context.Context, c *models.AutoEngageConfig) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO auto_engage_configs (id, user_id, license_key_id, platform, is_enabled, time_interval,
			actions, posts_per_day, hashtags, use_brand_voice, feed_likes, feed_comments, prompt_mode, keyword_targets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			license_key_id = EXCLUDED.license_key_id,
			is_enabled = EXCLUDED.is_enabled,
			time_interval = EXCLUDED.time_interval,
			actions = EXCLUDED.actions,
			posts_per_day = EXCLUDED.posts_per_day,
			hashtags = EXCLUDED.hashtags,
			use_brand_voice = EXCLUDED.use_brand_voice,
			feed_likes = EXCLUDED.feed_likes,
			feed_comments = EXCLUDED.feed_comments,
			prompt_mode = EXCLUDED.prompt_mode,
			keyword_targets = EXCLUDED.keyword_targets,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, c.ID, c.UserID, c.LicenseKeyID, c.Platform, c.IsEnabled, c.TimeInterval,
		c.Actions, c.PostsPerDay, c.Hashtags, c.UseBrandVoice, c.FeedLikes, c.FeedComments, c.PromptMode, c.KeywordTargets,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

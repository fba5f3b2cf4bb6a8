package models

import (
	"time"

	"github.com/google/uuid"
)

// Platforms the auto-engage worker can post to.
const (
	PlatformLinkedIn  = "LINKEDIN"
	PlatformTwitter   = "TWITTER"
	PlatformInstagram = "INSTAGRAM"
)

// AutoEngageConfig is a principal's per-platform automation configuration.
// Keyed unique on (user_id, platform); reads create a default row if none
// exists, which is safe to race because the write is an upsert.
type AutoEngageConfig struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	LicenseKeyID   *uuid.UUID `json:"license_key_id,omitempty"`
	Platform       string     `json:"platform"`
	IsEnabled      bool       `json:"is_enabled"`
	TimeInterval   int        `json:"time_interval"`
	Actions        []string   `json:"actions"`
	PostsPerDay    int        `json:"posts_per_day"`
	Hashtags       []string   `json:"hashtags"`
	UseBrandVoice  bool       `json:"use_brand_voice"`
	FeedLikes      int        `json:"feed_likes"`
	FeedComments   int        `json:"feed_comments"`
	PromptMode     string     `json:"prompt_mode"`
	KeywordTargets *string    `json:"keyword_targets,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DefaultAutoEngageConfig is the row created on first resolution of a
// principal that has no config for the platform yet.
func DefaultAutoEngageConfig(userID uuid.UUID, platform string) *AutoEngageConfig {
	return &AutoEngageConfig{
		ID:           uuid.New(),
		UserID:       userID,
		Platform:     platform,
		IsEnabled:    false,
		TimeInterval: 5,
		Actions:      []string{"COMMENT"},
		PostsPerDay:  5,
		Hashtags:     []string{},
		FeedLikes:    10,
		FeedComments: 5,
		PromptMode:   "automatic",
	}
}

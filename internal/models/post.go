package models

import (
	"database/sql"
	"time"
)

// Platform labels for the two tracked social platforms
const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
)

// Post represents one piece of published content by one creator.
// View counts are written by manual edits or the refresher; paid flags
// are written only by the reconciliation engine and its undo.
type Post struct {
	ID             int64          `gorm:"primaryKey;autoIncrement;column:id"`
	CreatorID      int64          `gorm:"not null;index:creator_posts_ix1;column:creator_id"`
	PostDate       time.Time      `gorm:"type:date;not null;column:post_date"`
	TikTokViews    int64          `gorm:"not null;default:0;column:tiktok_views"`
	InstagramViews int64          `gorm:"not null;default:0;column:instagram_views"`
	TikTokURL      sql.NullString `gorm:"type:varchar(1024);column:tiktok_url"`
	InstagramURL   sql.NullString `gorm:"type:varchar(1024);column:instagram_url"`
	BasePaid       bool           `gorm:"not null;default:false;column:base_paid"`
	BonusPaid      bool           `gorm:"not null;default:false;column:bonus_paid"`
	// Operator freeze flag; pins view counts against refresher writes
	ViewsLocked bool      `gorm:"not null;default:false;column:views_locked"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Creator *Creator `gorm:"foreignKey:CreatorID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "creator_posts"
}

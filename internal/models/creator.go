package models

import (
	"database/sql"
	"time"
)

// Creator represents a content creator enrolled in the payout program
type Creator struct {
	ID        int64          `gorm:"primaryKey;autoIncrement;column:id"`
	Name      string         `gorm:"type:varchar(64);not null;uniqueIndex:creators_ux1;column:name"`
	Email     sql.NullString `gorm:"type:varchar(255);column:email"`
	TikTok    sql.NullString `gorm:"type:varchar(64);column:tiktok_handle"`
	Instagram sql.NullString `gorm:"type:varchar(64);column:instagram_handle"`
	IsActive  bool           `gorm:"not null;default:true;column:is_active"`
	CreatedAt time.Time      `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Creator
func (Creator) TableName() string {
	return "creators"
}

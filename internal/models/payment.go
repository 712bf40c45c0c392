package models

import (
	"database/sql"
	"time"
)

// Payment status values
const (
	PaymentStatusUnreconciled = "unreconciled"
	PaymentStatusReconciled   = "reconciled"
)

// Payment represents one bank transfer to one creator. Rows are created
// by the external bank sync; only the reconciliation engine mutates them.
type Payment struct {
	ID          int64          `gorm:"primaryKey;autoIncrement;column:id"`
	CreatorID   int64          `gorm:"not null;index:creator_payments_ix1;column:creator_id"`
	Amount      int64          `gorm:"not null;column:amount"`
	PaymentDate time.Time      `gorm:"type:date;not null;column:payment_date"`
	Note        sql.NullString `gorm:"type:varchar(1024);column:note"`
	Status      string         `gorm:"type:varchar(16);not null;default:'unreconciled';column:status"`
	// Number of posts whose base share this payment covers
	BaseCount int64 `gorm:"not null;default:0;column:base_count"`
	// Bonus dollars this payment covers (selected or manually entered)
	BonusAmount int64     `gorm:"not null;default:0;column:bonus_amount"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Creator *Creator `gorm:"foreignKey:CreatorID;references:ID"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "creator_payments"
}

package models

import (
	"time"
)

// Payment types a link can carry. A post's base share and bonus share
// are each paid at most once, possibly by different payments.
const (
	PaymentTypeBase  = "base"
	PaymentTypeBonus = "bonus"
)

// PostPaymentLink joins a post to the payment that covered one of its
// shares. Created by save reconciliation, deleted in bulk by undo.
type PostPaymentLink struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID      int64     `gorm:"not null;index:post_payments_ix1;column:post_id"`
	PaymentID   int64     `gorm:"not null;index:post_payments_ix2;column:payment_id"`
	Amount      int64     `gorm:"not null;column:amount"`
	PaymentType string    `gorm:"type:varchar(8);not null;column:payment_type"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`

	// Relationships
	Post    *Post    `gorm:"foreignKey:PostID;references:ID"`
	Payment *Payment `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName specifies the table name for PostPaymentLink
func (PostPaymentLink) TableName() string {
	return "post_payments"
}

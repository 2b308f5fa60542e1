package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account record plus its billing access state. One row per
// email; the billing reconciler only patches existing rows, so this is the
// single place subscription state lives.
type User struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email                string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password             string         `gorm:"not null" json:"-"`
	Role                 string         `gorm:"size:20;default:'user'" json:"role"`
	SubscriptionStatus   string         `gorm:"size:20;not null;default:'inactive'" json:"subscription_status"`
	StripeCustomerID     *string        `gorm:"size:255;index" json:"-"`
	StripeSubscriptionID *string        `gorm:"size:255;index" json:"-"`
	CurrentPeriodEnd     *time.Time     `json:"current_period_end"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

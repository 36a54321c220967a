package models

import "time"

// Subscription status constants
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// Subscription represents a user's billing subscription, one row per user.
// A trial row carries no Stripe subscription reference; activation sets one.
type Subscription struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	UserID                string     `gorm:"column:user_id;uniqueIndex"`
	Status                string     `gorm:"column:status;index"`
	TrialEndsAt           *time.Time `gorm:"column:trial_ends_at"`
	SubscriptionStartDate *time.Time `gorm:"column:subscription_start_date"`
	SubscriptionEndDate   *time.Time `gorm:"column:subscription_end_date"`
	StripeCustomerID      *string    `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID  *string    `gorm:"column:stripe_subscription_id"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

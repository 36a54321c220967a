package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kairocrm/ingest/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByUserID retrieves the subscription for a user, or nil when none exists
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	result := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", result.Error)
	}
	return &sub, nil
}

// Activate upserts the user's subscription into active with the Stripe
// references from a completed checkout. Replaying the same event converges to
// the same row.
func (r *SubscriptionRepository) Activate(ctx context.Context, userID string, stripeCustomerID string, stripeSubscriptionID string, startedAt time.Time) error {
	now := time.Now()
	sub := models.Subscription{
		ID:                    uuid.NewString(),
		UserID:                userID,
		Status:                models.SubscriptionActive,
		SubscriptionStartDate: &startedAt,
		StripeCustomerID:      &stripeCustomerID,
		StripeSubscriptionID:  &stripeSubscriptionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":                  models.SubscriptionActive,
			"subscription_start_date": startedAt,
			"stripe_customer_id":      stripeCustomerID,
			"stripe_subscription_id":  stripeSubscriptionID,
			"updated_at":              now,
		}),
	}).Create(&sub)
	if result.Error != nil {
		return fmt.Errorf("failed to activate subscription: %w", result.Error)
	}
	return nil
}

// UpdateStatus upserts the user's subscription status. A non-nil endDate also
// updates subscription_end_date; a nil endDate leaves it untouched.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, userID string, status string, endDate *time.Time) error {
	now := time.Now()
	assignments := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if endDate != nil {
		assignments["subscription_end_date"] = *endDate
	}

	sub := models.Subscription{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Status:              status,
		SubscriptionEndDate: endDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&sub)
	if result.Error != nil {
		return fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	return nil
}

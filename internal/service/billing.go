package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kairocrm/ingest/internal/billing"
	"github.com/kairocrm/ingest/internal/models"
)

// SubscriptionStore is the slice of the subscription repository the billing
// service needs. Both writes are idempotent upserts keyed by user id.
type SubscriptionStore interface {
	Activate(ctx context.Context, userID string, stripeCustomerID string, stripeSubscriptionID string, startedAt time.Time) error
	UpdateStatus(ctx context.Context, userID string, status string, endDate *time.Time) error
}

// BillingService maps billing-processor events onto subscription transitions
type BillingService struct {
	subscriptions SubscriptionStore
}

func NewBillingService(subscriptions SubscriptionStore) *BillingService {
	return &BillingService{subscriptions: subscriptions}
}

// HandleEvent applies one verified billing event. Events with no user
// reference and event types this service does not know are logged and
// swallowed: upstream keeps inventing event types and must never see them
// bounce.
func (s *BillingService) HandleEvent(ctx context.Context, event billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)

	case billing.EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)

	case billing.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)

	case billing.EventInvoicePaid, billing.EventInvoiceFailed:
		// Reserved for payment notification side effects.
		log.Printf("Billing event %s (%s) acknowledged without action", event.Type, event.ID)
		return nil

	default:
		log.Printf("Unhandled billing event type %s (%s)", event.Type, event.ID)
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, event billing.Event) error {
	var session billing.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return fmt.Errorf("%w: checkout session: %v", billing.ErrInvalidPayload, err)
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["userId"]
	}
	if userID == "" {
		log.Printf("Checkout event %s has no user reference, skipping", event.ID)
		return nil
	}

	if err := s.subscriptions.Activate(ctx, userID, session.Customer, session.Subscription, time.Now()); err != nil {
		return err
	}

	log.Printf("Subscription activated for user %s (checkout %s)", userID, session.ID)
	return nil
}

func (s *BillingService) handleSubscriptionUpdated(ctx context.Context, event billing.Event) error {
	sub, userID, err := parseSubscriptionObject(event)
	if err != nil {
		return err
	}
	if userID == "" {
		log.Printf("Subscription update %s has no user reference, skipping", event.ID)
		return nil
	}

	status := models.SubscriptionExpired
	if sub.Status == "active" {
		status = models.SubscriptionActive
	}

	var endDate *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0)
		endDate = &t
	}

	return s.subscriptions.UpdateStatus(ctx, userID, status, endDate)
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event billing.Event) error {
	_, userID, err := parseSubscriptionObject(event)
	if err != nil {
		return err
	}
	if userID == "" {
		log.Printf("Subscription deletion %s has no user reference, skipping", event.ID)
		return nil
	}

	return s.subscriptions.UpdateStatus(ctx, userID, models.SubscriptionCancelled, nil)
}

func parseSubscriptionObject(event billing.Event) (billing.SubscriptionObject, string, error) {
	var sub billing.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return sub, "", fmt.Errorf("%w: subscription object: %v", billing.ErrInvalidPayload, err)
	}
	return sub, sub.Metadata["userId"], nil
}

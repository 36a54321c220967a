package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kairocrm/ingest/internal/billing"
	"github.com/kairocrm/ingest/internal/models"
)

// mockSubscriptionStore implements SubscriptionStore for testing
type mockSubscriptionStore struct {
	activateFunc     func(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error
	updateStatusFunc func(ctx context.Context, userID, status string, endDate *time.Time) error
}

func (m *mockSubscriptionStore) Activate(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error {
	return m.activateFunc(ctx, userID, stripeCustomerID, stripeSubscriptionID, startedAt)
}

func (m *mockSubscriptionStore) UpdateStatus(ctx context.Context, userID, status string, endDate *time.Time) error {
	return m.updateStatusFunc(ctx, userID, status, endDate)
}

func billingEvent(t *testing.T, eventType string, object interface{}) billing.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("Failed to marshal event object: %v", err)
	}
	event := billing.Event{ID: "evt_1", Type: eventType}
	event.Data.Object = raw
	return event
}

func TestHandleEvent_CheckoutCompleted(t *testing.T) {
	var gotUserID, gotCustomer, gotSubscription string

	store := &mockSubscriptionStore{
		activateFunc: func(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error {
			gotUserID = userID
			gotCustomer = stripeCustomerID
			gotSubscription = stripeSubscriptionID
			return nil
		},
	}

	event := billingEvent(t, billing.EventCheckoutCompleted, billing.CheckoutSession{
		ID:                "cs_1",
		ClientReferenceID: "user-1",
		Customer:          "cus_1",
		Subscription:      "sub_1",
	})

	service := NewBillingService(store)
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotUserID != "user-1" || gotCustomer != "cus_1" || gotSubscription != "sub_1" {
		t.Errorf("Expected activation for user-1/cus_1/sub_1, got %s/%s/%s", gotUserID, gotCustomer, gotSubscription)
	}
}

func TestHandleEvent_CheckoutFallsBackToMetadata(t *testing.T) {
	var gotUserID string

	store := &mockSubscriptionStore{
		activateFunc: func(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error {
			gotUserID = userID
			return nil
		},
	}

	event := billingEvent(t, billing.EventCheckoutCompleted, billing.CheckoutSession{
		ID:       "cs_2",
		Metadata: map[string]string{"userId": "user-2"},
	})

	service := NewBillingService(store)
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotUserID != "user-2" {
		t.Errorf("Expected metadata user-2, got %s", gotUserID)
	}
}

func TestHandleEvent_CheckoutWithoutUserIsSkipped(t *testing.T) {
	store := &mockSubscriptionStore{
		activateFunc: func(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error {
			t.Error("Activate must not be called without a user reference")
			return nil
		},
	}

	event := billingEvent(t, billing.EventCheckoutCompleted, billing.CheckoutSession{ID: "cs_3"})

	service := NewBillingService(store)
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("Expected silent skip, got %v", err)
	}
}

func TestHandleEvent_SubscriptionUpdated(t *testing.T) {
	tests := []struct {
		name           string
		stripeStatus   string
		expectedStatus string
	}{
		{"active maps to active", "active", models.SubscriptionActive},
		{"past_due maps to expired", "past_due", models.SubscriptionExpired},
		{"canceled maps to expired", "canceled", models.SubscriptionExpired},
	}

	periodEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus string
			var gotEndDate *time.Time

			store := &mockSubscriptionStore{
				updateStatusFunc: func(ctx context.Context, userID, status string, endDate *time.Time) error {
					gotStatus = status
					gotEndDate = endDate
					return nil
				},
			}

			event := billingEvent(t, billing.EventSubscriptionUpdated, billing.SubscriptionObject{
				ID:               "sub_1",
				Status:           tt.stripeStatus,
				CurrentPeriodEnd: periodEnd,
				Metadata:         map[string]string{"userId": "user-1"},
			})

			service := NewBillingService(store)
			if err := service.HandleEvent(context.Background(), event); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if gotStatus != tt.expectedStatus {
				t.Errorf("Expected status %s, got %s", tt.expectedStatus, gotStatus)
			}
			if gotEndDate == nil || gotEndDate.Unix() != periodEnd {
				t.Errorf("Expected end date at period end, got %v", gotEndDate)
			}
		})
	}
}

func TestHandleEvent_SubscriptionDeleted(t *testing.T) {
	var gotStatus string
	var gotEndDate *time.Time

	store := &mockSubscriptionStore{
		updateStatusFunc: func(ctx context.Context, userID, status string, endDate *time.Time) error {
			gotStatus = status
			gotEndDate = endDate
			return nil
		},
	}

	event := billingEvent(t, billing.EventSubscriptionDeleted, billing.SubscriptionObject{
		ID:       "sub_1",
		Metadata: map[string]string{"userId": "user-1"},
	})

	service := NewBillingService(store)
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotStatus != models.SubscriptionCancelled {
		t.Errorf("Expected cancelled status, got %s", gotStatus)
	}
	if gotEndDate != nil {
		t.Errorf("Expected end date left untouched, got %v", gotEndDate)
	}
}

func TestHandleEvent_UnknownTypeIsAcknowledged(t *testing.T) {
	store := &mockSubscriptionStore{
		activateFunc: func(ctx context.Context, userID, stripeCustomerID, stripeSubscriptionID string, startedAt time.Time) error {
			t.Error("Unknown event types must not touch the store")
			return nil
		},
		updateStatusFunc: func(ctx context.Context, userID, status string, endDate *time.Time) error {
			t.Error("Unknown event types must not touch the store")
			return nil
		},
	}

	event := billing.Event{ID: "evt_9", Type: "payment_method.attached"}

	service := NewBillingService(store)
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Errorf("Expected unknown type to be acknowledged, got %v", err)
	}
}

func TestHandleEvent_MalformedObject(t *testing.T) {
	service := NewBillingService(&mockSubscriptionStore{})

	event := billing.Event{ID: "evt_bad", Type: billing.EventSubscriptionUpdated}
	event.Data.Object = json.RawMessage(`"not an object"`)

	err := service.HandleEvent(context.Background(), event)
	if !errors.Is(err, billing.ErrInvalidPayload) {
		t.Errorf("Expected ErrInvalidPayload, got %v", err)
	}
}

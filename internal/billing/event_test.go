package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

func signPayload(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	event, err := ConstructEvent(payload, header, "whsec_test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if event.ID != "evt_1" {
		t.Errorf("expected event ID evt_1, got %s", event.ID)
	}
	if event.Type != EventCheckoutCompleted {
		t.Errorf("expected type %s, got %s", EventCheckoutCompleted, event.Type)
	}
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	header := signPayload(t, payload, "whsec_other", time.Now())

	_, err := ConstructEvent(payload, header, "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	tampered := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{}}}`)
	_, err := ConstructEvent(tampered, header, "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{}}}`)
	header := signPayload(t, payload, "whsec_test", time.Now().Add(-time.Hour))

	_, err := ConstructEvent(payload, header, "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}

func TestConstructEvent_MissingHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{}}}`)

	_, err := ConstructEvent(payload, "", "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}

func TestConstructEvent_NoSecretSkipsVerification(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{}}}`)

	event, err := ConstructEvent(payload, "", "")
	if err != nil {
		t.Fatalf("expected no error in fail-open mode, got %v", err)
	}
	if event.Type != EventInvoicePaid {
		t.Errorf("expected type %s, got %s", EventInvoicePaid, event.Type)
	}
}

func TestConstructEvent_MalformedPayload(t *testing.T) {
	payload := []byte(`not json`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	_, err := ConstructEvent(payload, header, "whsec_test")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestConstructEvent_MissingType(t *testing.T) {
	payload := []byte(`{"id":"evt_1","data":{"object":{}}}`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	_, err := ConstructEvent(payload, header, "whsec_test")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing type, got %v", err)
	}
}

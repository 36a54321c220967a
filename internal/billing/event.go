// Package billing parses and authenticates billing-processor webhook events.
// Events arrive in Stripe's wire format: a JSON envelope plus a
// Stripe-Signature header of the form "t=<unix>,v1=<hmac>,...".
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types this service reacts to
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// DefaultTolerance is how far the signature timestamp may drift from now
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// Event is the billing-processor event envelope
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the data object of checkout.session.completed
type CheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

// SubscriptionObject is the data object of customer.subscription.* events
type SubscriptionObject struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Customer         string            `json:"customer"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

// ConstructEvent verifies the signature header against the raw payload and
// parses the envelope. An empty secret skips verification, mirroring the
// shared-secret verifier's fail-open dev mode.
func ConstructEvent(payload []byte, sigHeader string, secret string) (Event, error) {
	return ConstructEventWithTolerance(payload, sigHeader, secret, DefaultTolerance)
}

// ConstructEventWithTolerance is ConstructEvent with an explicit timestamp
// drift tolerance.
func ConstructEventWithTolerance(payload []byte, sigHeader string, secret string, tolerance time.Duration) (Event, error) {
	var event Event

	if secret != "" {
		if err := verifySignature(payload, sigHeader, secret, tolerance, time.Now()); err != nil {
			return event, err
		}
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.Type == "" {
		return event, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	return event, nil
}

// verifySignature checks every v1 candidate in the header against the
// HMAC-SHA256 of "<timestamp>.<payload>".
func verifySignature(payload []byte, sigHeader string, secret string, tolerance time.Duration, now time.Time) error {
	timestamp, candidates, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		drift := now.Sub(time.Unix(timestamp, 0))
		if drift < -tolerance || drift > tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1 {
			return nil
		}
	}
	return ErrInvalidSignature
}

// parseSignatureHeader splits "t=<unix>,v1=<sig>[,v1=<sig>...]" into its parts
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	var timestamp int64 = -1
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			parsed, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			timestamp = parsed
		case "v1":
			candidates = append(candidates, pair[1])
		}
	}

	if timestamp < 0 || len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
	}
	return timestamp, candidates, nil
}

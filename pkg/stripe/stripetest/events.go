// Package stripetest builds signed Stripe webhook payloads for tests.
package stripetest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Secret is the signing secret used by test clients.
const Secret = "whsec_test"

// PaymentIntentEvent builds an event of eventType embedding a payment intent
// that carries metadata.
func PaymentIntentEvent(t testing.TB, eventType stripe.EventType, metadata map[string]string) *stripe.Event {
	t.Helper()
	intent := &stripe.PaymentIntent{
		ID:                 "pi_" + uuid.NewString(),
		Object:             "payment_intent",
		Amount:             1000,
		Currency:           stripe.CurrencyMYR,
		PaymentMethodTypes: []string{"fpx"},
		Metadata:           metadata,
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal payment intent: %v", err)
	}
	return &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data: &stripe.EventData{
			Raw: raw,
		},
	}
}

// Sign serializes event and returns the payload with a valid signature header.
func Sign(t testing.TB, event *stripe.Event, secret string) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, SignatureHeader(payload, secret, time.Now().Unix())
}

// SignatureHeader computes a Stripe-Signature header value for payload.
func SignatureHeader(payload []byte, secret string, ts int64) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Unix(ts, 0),
	})
	return signed.Header
}

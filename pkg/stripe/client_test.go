package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/stripe/stripetest"
)

func newTestClient(t *testing.T, cfg config.StripeConfig) *Client {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "sk_test_123"
	}
	if cfg.Secret == "" {
		cfg.Secret = stripetest.Secret
	}
	client, err := NewClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StripeConfig
	}{
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec"}},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_1"}},
		{name: "live key in test env", cfg: config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec"}},
		{name: "test key in live env", cfg: config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec", Env: "live"}},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec", Env: "staging"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewClient(context.Background(), tc.cfg, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	client := newTestClient(t, config.StripeConfig{Env: "LIVE", APIKey: "rk_live_1"})
	if client.Environment() != liveEnv {
		t.Fatalf("expected live env, got %q", client.Environment())
	}
}

func TestVerifyEvent(t *testing.T) {
	client := newTestClient(t, config.StripeConfig{})
	event := stripetest.PaymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"transactionid": "T1"})
	payload, header := stripetest.Sign(t, event, stripetest.Secret)

	got, err := client.VerifyEvent(payload, header)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != event.ID || got.Type != stripe.EventTypePaymentIntentSucceeded {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.GetObjectValue("metadata", "transactionid") != "T1" {
		t.Fatalf("expected metadata to survive verification")
	}
}

func TestVerifyEventRejectsTampering(t *testing.T) {
	client := newTestClient(t, config.StripeConfig{})
	event := stripetest.PaymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"transactionid": "T1"})
	payload, header := stripetest.Sign(t, event, stripetest.Secret)

	tampered := []byte(strings.Replace(string(payload), "T1", "T9", 1))
	if _, err := client.VerifyEvent(tampered, header); !errors.Is(err, webhook.ErrNoValidSignature) {
		t.Fatalf("expected no valid signature, got %v", err)
	}

	_, wrongSecretHeader := stripetest.Sign(t, event, "whsec_other")
	if _, err := client.VerifyEvent(payload, wrongSecretHeader); !errors.Is(err, webhook.ErrNoValidSignature) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}

	if _, err := client.VerifyEvent(payload, ""); err == nil {
		t.Fatalf("expected missing signature to fail")
	}

	stale := stripetest.SignatureHeader(payload, stripetest.Secret, time.Now().Add(-time.Hour).Unix())
	if _, err := client.VerifyEvent(payload, stale); !errors.Is(err, webhook.ErrTooOld) {
		t.Fatalf("expected stale signature to fail, got %v", err)
	}
}

func TestVerifyEventAPIVersionMismatch(t *testing.T) {
	event := stripetest.PaymentIntentEvent(t, stripe.EventTypePaymentIntentSucceeded, map[string]string{"transactionid": "T1"})
	event.APIVersion = "2022-11-15"
	payload, header := stripetest.Sign(t, event, stripetest.Secret)

	lenient := newTestClient(t, config.StripeConfig{IgnoreAPIVersionMismatch: true})
	if _, err := lenient.VerifyEvent(payload, header); err != nil {
		t.Fatalf("expected mismatch to be ignored, got %v", err)
	}

	strict := newTestClient(t, config.StripeConfig{IgnoreAPIVersionMismatch: false})
	if _, err := strict.VerifyEvent(payload, header); err == nil {
		t.Fatalf("expected mismatch to be rejected")
	}
}

func TestCreatePaymentIntentSingleAttempt(t *testing.T) {
	var calls int
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = map[string]string{
			"amount":                  r.PostForm.Get("amount"),
			"currency":                r.PostForm.Get("currency"),
			"payment_method_types[0]": r.PostForm.Get("payment_method_types[0]"),
			"metadata[transactionid]": r.PostForm.Get("metadata[transactionid]"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                   "pi_123",
			"object":               "payment_intent",
			"amount":               1000,
			"currency":             "myr",
			"payment_method_types": []string{"fpx"},
			"metadata":             map[string]string{"transactionid": "T1"},
			"status":               "requires_payment_method",
		})
	}))
	defer server.Close()

	client := newTestClient(t, config.StripeConfig{APIBaseURL: server.URL})
	intent, err := client.CreatePaymentIntent(context.Background(), &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(1000),
		Currency:           stripe.String("myr"),
		PaymentMethodTypes: stripe.StringSlice([]string{"fpx"}),
		Metadata:           map[string]string{"transactionid": "T1"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if intent.ID != "pi_123" || intent.Metadata["transactionid"] != "T1" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	want := map[string]string{
		"amount":                  "1000",
		"currency":                "myr",
		"payment_method_types[0]": "fpx",
		"metadata[transactionid]": "T1",
	}
	for k, v := range want {
		if form[k] != v {
			t.Fatalf("expected %s=%q, got %q", k, v, form[k])
		}
	}
}

func TestCreatePaymentIntentSurfacesStripeError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"upstream unavailable"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, config.StripeConfig{APIBaseURL: server.URL})
	_, err := client.CreatePaymentIntent(context.Background(), &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(1000),
		Currency: stripe.String("myr"),
	})
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		t.Fatalf("expected stripe error, got %v", err)
	}
	if stripeErr.Type != stripe.ErrorTypeAPI {
		t.Fatalf("unexpected error type %q", stripeErr.Type)
	}
	if calls != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}

package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	// MissingSignature stands in for an absent Stripe-Signature header so the
	// verifier reports a signature failure instead of a missing argument.
	MissingSignature = "none"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api                      *stripe.Client
	environment              string
	signingSecret            string
	ignoreAPIVersionMismatch bool
}

// NewClient initializes Stripe once with the configured secrets and env.
// Network retries are disabled: every create call is a single attempt.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	}
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		backendCfg.URL = stripe.String(base)
	}
	api := stripe.NewClient(apiKey, stripe.WithBackends(stripe.NewBackendsWithConfig(backendCfg)))

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:                      api,
		environment:              env,
		signingSecret:            signingSecret,
		ignoreAPIVersionMismatch: cfg.IgnoreAPIVersionMismatch,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreatePaymentIntent issues a single payment intent create call.
func (c *Client) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	return c.api.V1PaymentIntents.Create(ctx, params)
}

// VerifyEvent checks sigHeader against the raw payload with the configured
// signing secret and returns the parsed event only when it is authentic.
// payload must be the exact bytes received.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (*stripe.Event, error) {
	if c == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if strings.TrimSpace(sigHeader) == "" {
		sigHeader = MissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, c.signingSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: c.ignoreAPIVersionMismatch,
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

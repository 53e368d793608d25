package intents

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/metrics"
)

// MetadataTransactionID is the payment intent metadata key that carries the
// transaction id to the webhook receiver.
const MetadataTransactionID = "transactionid"

// Service creates payment intents for transactions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*stripe.PaymentIntent, error)
}

// CreateInput is forwarded to the processor as-is. Amount is in the smallest
// currency unit; a nil Amount is left for the processor to reject.
type CreateInput struct {
	TransactionID string
	Amount        *int64
	PaymentMethod string
}

// ServiceParams groups dependencies for the intent service.
type ServiceParams struct {
	Processor            intentCreator
	Currency             string
	DefaultPaymentMethod string
	Logger               *logger.Logger
	Metrics              *metrics.PaymentMetrics
}

type intentCreator interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

type service struct {
	processor     intentCreator
	currency      string
	defaultMethod string
	logg          *logger.Logger
	metrics       *metrics.PaymentMetrics
}

// NewService constructs an intent service.
func NewService(params ServiceParams) (*service, error) {
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment processor required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "currency required")
	}
	method := strings.TrimSpace(params.DefaultPaymentMethod)
	if method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "default payment method required")
	}
	return &service{
		processor:     params.Processor,
		currency:      currency,
		defaultMethod: method,
		logg:          params.Logger,
		metrics:       params.Metrics,
	}, nil
}

// Create issues exactly one create call. Processor failures are returned as
// CodeProcessor errors wrapping the processor's own error.
func (s *service) Create(ctx context.Context, input CreateInput) (*stripe.PaymentIntent, error) {
	params := s.BuildParams(input)
	if s.logg != nil {
		ctx = s.logg.WithTransactionID(ctx, input.TransactionID)
		ctx = s.logg.WithFields(ctx, s.auditFields(params))
		s.logg.Info(ctx, "payment_intent.create")
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, params)
	if err != nil {
		s.metrics.IncIntent(metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeProcessor, err, "create payment intent")
	}
	s.metrics.IncIntent(metrics.OutcomeSuccess)
	if s.logg != nil && intent != nil {
		s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", intent.ID), "payment_intent.created")
	}
	return intent, nil
}

// BuildParams maps input onto processor create params.
func (s *service) BuildParams(input CreateInput) *stripe.PaymentIntentCreateParams {
	method := strings.TrimSpace(input.PaymentMethod)
	if method == "" {
		method = s.defaultMethod
	}
	params := &stripe.PaymentIntentCreateParams{
		Currency:           stripe.String(s.currency),
		PaymentMethodTypes: []*string{stripe.String(method)},
		Metadata: map[string]string{
			MetadataTransactionID: input.TransactionID,
		},
	}
	if input.Amount != nil {
		params.Amount = stripe.Int64(*input.Amount)
	}
	return params
}

func (s *service) auditFields(params *stripe.PaymentIntentCreateParams) map[string]any {
	fields := map[string]any{
		"currency":       s.currency,
		"payment_method": stripe.StringValue(params.PaymentMethodTypes[0]),
	}
	if params.Amount != nil {
		fields["amount"] = *params.Amount
		fields["amount_major"] = MajorUnits(*params.Amount, s.currency).String()
	}
	return fields
}

// zeroDecimalCurrencies are charged in whole units by the processor.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// MajorUnits converts a smallest-unit amount into the currency's major unit.
func MajorUnits(amount int64, currency string) decimal.Decimal {
	if _, ok := zeroDecimalCurrencies[strings.ToLower(currency)]; ok {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

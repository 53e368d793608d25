package stripewebhook

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/paybridge/internal/transactions"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/metrics"
)

type ServiceParams struct {
	Store   transactions.Store
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
}

// Service applies verified payment events to the transaction store.
// Deliveries are not de-duplicated: every terminal delivery issues one RPC.
type Service struct {
	store   transactions.Store
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction store required")
	}
	return &Service{
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// HandleEvent parses event and dispatches at most one store call. The parsed
// event is returned even on failure so callers can report its type.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (PaymentEvent, error) {
	parsed, err := ParseEvent(event)
	if s.logg != nil && event != nil {
		ctx = s.logg.WithEvent(ctx, event.ID, string(event.Type))
	}
	if err != nil {
		s.metrics.IncWebhook(parsed.Type(), metrics.OutcomeInvalid)
		return parsed, err
	}

	status, terminal := parsed.Kind.TargetStatus()
	if !terminal {
		s.metrics.IncWebhook(parsed.Type(), metrics.OutcomeIgnored)
		if s.logg != nil {
			s.logg.Debug(ctx, "stripe.event.ignored")
		}
		return parsed, nil
	}

	rpc, _ := transactions.RPCFor(status)
	if s.logg != nil {
		ctx = s.logg.WithTransactionID(ctx, parsed.TransactionID)
		ctx = s.logg.WithFields(ctx, map[string]any{"target_status": status.String(), "rpc": rpc})
	}

	started := time.Now()
	switch parsed.Kind {
	case EventKindSucceeded:
		err = s.store.MarkSuccessful(ctx, parsed.TransactionID)
	case EventKindFailed:
		err = s.store.MarkFailed(ctx, parsed.TransactionID)
	}
	elapsed := time.Since(started)

	if err != nil {
		s.metrics.ObserveStoreCall(rpc, metrics.OutcomeFailure, elapsed)
		s.metrics.IncWebhook(parsed.Type(), metrics.OutcomeFailure)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeStore, err, "apply transaction status")
		}
		return parsed, err
	}

	s.metrics.ObserveStoreCall(rpc, metrics.OutcomeSuccess, elapsed)
	s.metrics.IncWebhook(parsed.Type(), metrics.OutcomeSuccess)
	if s.logg != nil {
		s.logg.Info(ctx, "stripe.event.applied")
	}
	return parsed, nil
}

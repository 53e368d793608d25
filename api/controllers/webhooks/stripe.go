package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/paybridge/api/responses"
	stripewebhook "github.com/angelmondragon/paybridge/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/metrics"
)

const maxWebhookBody = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.PaymentEvent, error)
}

type eventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (*stripe.Event, error)
}

// StripeWebhookOptions configures failure reporting for StripeWebhook.
type StripeWebhookOptions struct {
	// StoreFailureStatus is returned when a verified event could not be
	// applied. Zero means the STORE_ERROR default.
	StoreFailureStatus int
	Metrics            *metrics.PaymentMetrics
}

// StripeWebhook verifies payment intent events and applies them to the
// transaction store. Failures answer with a plain-text message; success
// echoes the verified event.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, opts StripeWebhookOptions, logg *logger.Logger) http.HandlerFunc {
	storeStatus := opts.StoreFailureStatus
	if storeStatus == 0 {
		storeStatus = pkgerrors.MetadataFor(pkgerrors.CodeStore).HTTPStatus
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			typed := responses.LogError(ctx, logg, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			responses.WriteText(w, http.StatusBadRequest, typed.Message())
			return
		}

		event, err := verifier.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			opts.Metrics.IncWebhook("", metrics.OutcomeInvalid)
			responses.LogError(ctx, logg, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			responses.WriteText(w, http.StatusBadRequest, err.Error())
			return
		}

		if _, err := svc.HandleEvent(ctx, event); err != nil {
			typed := responses.LogError(ctx, logg, err)
			switch typed.Code() {
			case pkgerrors.CodeParse:
				responses.WriteText(w, http.StatusBadRequest, typed.Message())
			case pkgerrors.CodeStore:
				responses.WriteText(w, storeStatus, typed.Error())
			default:
				meta := pkgerrors.MetadataFor(typed.Code())
				responses.WriteText(w, meta.HTTPStatus, meta.PublicMessage)
			}
			return
		}

		responses.WriteJSON(w, http.StatusOK, event)
	}
}

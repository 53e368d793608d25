package payments

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/paybridge/api/responses"
	"github.com/angelmondragon/paybridge/api/validators"
	"github.com/angelmondragon/paybridge/internal/intents"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/types"
)

// intentCreateRequest keeps the field names existing clients already send.
type intentCreateRequest struct {
	TransactionID string `json:"transactionid"`
	Amount        *int64 `json:"amount"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// CreateIntent creates a payment intent and returns it under "data". A
// processor rejection is returned as the processor's own error document.
func CreateIntent(svc intents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intent service unavailable"))
			return
		}

		var payload intentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload, validators.AllowUnknownFields()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		intent, err := svc.Create(ctx, intents.CreateInput{
			TransactionID: payload.TransactionID,
			Amount:        payload.Amount,
			PaymentMethod: payload.PaymentMethod,
		})
		if err != nil {
			typed := responses.LogError(ctx, logg, err)
			if typed.Code() != pkgerrors.CodeProcessor {
				responses.WriteError(ctx, nil, w, typed)
				return
			}
			responses.WriteJSON(w, pkgerrors.MetadataFor(pkgerrors.CodeProcessor).HTTPStatus, processorErrorBody(typed))
			return
		}

		responses.WriteSuccess(w, intent)
	}
}

func processorErrorBody(err *pkgerrors.Error) any {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr
	}
	if cause := errors.Unwrap(err); cause != nil {
		return types.MessageBody{Message: cause.Error()}
	}
	return types.MessageBody{Message: err.Message()}
}

package stripewebhook

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/paybridge/internal/intents"
	"github.com/angelmondragon/paybridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

// EventKind classifies a verified processor event.
type EventKind int

const (
	EventKindOther EventKind = iota
	EventKindSucceeded
	EventKindFailed
)

func (k EventKind) String() string {
	switch k {
	case EventKindSucceeded:
		return "succeeded"
	case EventKindFailed:
		return "failed"
	default:
		return "other"
	}
}

// TargetStatus is the transaction status a kind moves a record to.
func (k EventKind) TargetStatus() (enums.TransactionStatus, bool) {
	switch k {
	case EventKindSucceeded:
		return enums.TransactionStatusSuccessful, true
	case EventKindFailed:
		return enums.TransactionStatusFailed, true
	default:
		return "", false
	}
}

// PaymentEvent is a verified event reduced to what dispatch needs.
// TransactionID is set for every kind except EventKindOther.
type PaymentEvent struct {
	Kind          EventKind
	TransactionID string
	Event         *stripe.Event
}

// Type returns the raw event type string.
func (e PaymentEvent) Type() string {
	if e.Event == nil {
		return ""
	}
	return string(e.Event.Type)
}

// KindOf maps an event type onto its kind.
func KindOf(eventType stripe.EventType) EventKind {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return EventKindSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		return EventKindFailed
	default:
		return EventKindOther
	}
}

// ParseEvent classifies event and extracts the transaction id from the
// embedded payment intent's metadata. Terminal events without one yield a
// CodeParse error.
func ParseEvent(event *stripe.Event) (PaymentEvent, error) {
	if event == nil {
		return PaymentEvent{}, pkgerrors.New(pkgerrors.CodeParse, "event missing")
	}
	parsed := PaymentEvent{Kind: KindOf(event.Type), Event: event}
	if parsed.Kind == EventKindOther {
		return parsed, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return parsed, pkgerrors.New(pkgerrors.CodeParse, fmt.Sprintf("%s event has no data object", event.Type))
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return parsed, pkgerrors.Wrap(pkgerrors.CodeParse, err, fmt.Sprintf("decode %s payment intent", event.Type))
	}
	trid, ok := intent.Metadata[intents.MetadataTransactionID]
	if !ok || trid == "" {
		return parsed, pkgerrors.New(pkgerrors.CodeParse, fmt.Sprintf("%s event missing metadata.%s", event.Type, intents.MetadataTransactionID))
	}
	parsed.TransactionID = trid
	return parsed, nil
}

package transactions

import (
	"context"

	"github.com/angelmondragon/paybridge/pkg/enums"
)

// RPC names exposed by the transaction store. Both take a single trid argument.
const (
	RPCMarkSuccessful = "update_amount_transactions"
	RPCMarkFailed     = "update_status_failed"

	rpcParamTransactionID = "trid"
)

// Store applies terminal status transitions to transaction records. Transition
// safety (pending-only, no backward moves) is enforced by the store itself.
type Store interface {
	MarkSuccessful(ctx context.Context, transactionID string) error
	MarkFailed(ctx context.Context, transactionID string) error
	Ping(ctx context.Context) error
}

// RPCFor returns the store procedure that moves a record to status.
func RPCFor(status enums.TransactionStatus) (string, bool) {
	switch status {
	case enums.TransactionStatusSuccessful:
		return RPCMarkSuccessful, true
	case enums.TransactionStatusFailed:
		return RPCMarkFailed, true
	default:
		return "", false
	}
}

package transactions

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
	Ping(ctx context.Context) error
}

// SQLStore invokes the status procedures over a direct database connection.
type SQLStore struct {
	db execer
}

func NewSQLStore(db execer) (*SQLStore, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) MarkSuccessful(ctx context.Context, transactionID string) error {
	return s.call(ctx, RPCMarkSuccessful, transactionID)
}

func (s *SQLStore) MarkFailed(ctx context.Context, transactionID string) error {
	return s.call(ctx, RPCMarkFailed, transactionID)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "ping database")
	}
	return nil
}

func (s *SQLStore) call(ctx context.Context, fn, transactionID string) error {
	query := fmt.Sprintf("SELECT %s(?)", fn)
	if err := s.db.Exec(ctx, query, transactionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, fmt.Sprintf("rpc %s", fn))
	}
	return nil
}

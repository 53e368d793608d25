package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/db"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

// rpcLog captures the procedure calls the in-memory database receives.
type rpcLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *rpcLog) record(fn, trid string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fn+":"+trid)
}

func (l *rpcLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

var driverSeq atomic.Int64

func newSQLiteClient(t *testing.T, log *rpcLog) *db.Client {
	t.Helper()

	name := fmt.Sprintf("sqlite3_transactions_%d", driverSeq.Add(1))
	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, fn := range []string{RPCMarkSuccessful, RPCMarkFailed} {
				fn := fn
				impl := func(trid string) (int64, error) {
					if trid == "" {
						return 0, errors.New("trid required")
					}
					log.record(fn, trid)
					return 1, nil
				}
				if err := conn.RegisterFunc(fn, impl, false); err != nil {
					return err
				}
			}
			return nil
		},
	})

	client, err := db.Open(context.Background(), sqlite.New(sqlite.Config{
		DriverName: name,
		DSN:        "file::memory:",
	}), config.DBConfig{MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSQLStore_CallsProcedures(t *testing.T) {
	log := &rpcLog{}
	store, err := NewSQLStore(newSQLiteClient(t, log))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.MarkSuccessful(ctx, "T1"))
	require.NoError(t, store.MarkFailed(ctx, "T2"))
	require.NoError(t, store.MarkFailed(ctx, "T2"))

	assert.Equal(t, []string{
		"update_amount_transactions:T1",
		"update_status_failed:T2",
		"update_status_failed:T2",
	}, log.snapshot())
}

func TestSQLStore_ProcedureErrorIsStoreError(t *testing.T) {
	store, err := NewSQLStore(newSQLiteClient(t, &rpcLog{}))
	require.NoError(t, err)

	err = store.MarkSuccessful(context.Background(), "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStore))
}

func TestSQLStore_Ping(t *testing.T) {
	store, err := NewSQLStore(newSQLiteClient(t, &rpcLog{}))
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewSQLStore_RequiresClient(t *testing.T) {
	_, err := NewSQLStore(nil)
	assert.Error(t, err)
}

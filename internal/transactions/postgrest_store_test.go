package transactions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/paybridge/pkg/config"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

type recordedCall struct {
	method string
	path   string
	apikey string
	auth   string
	body   map[string]string
}

type rpcServer struct {
	mu     sync.Mutex
	calls  []recordedCall
	status int
	body   string
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	call := recordedCall{
		method: r.Method,
		path:   r.URL.Path,
		apikey: r.Header.Get("apikey"),
		auth:   r.Header.Get("Authorization"),
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &call.body)
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	status, body := s.status, s.body
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestPostgREST(t *testing.T, srv *rpcServer) *PostgRESTStore {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	store, err := NewPostgRESTStore(config.StoreConfig{
		URL:        ts.URL + "/",
		ServiceKey: "service-role",
		Timeout:    time.Second,
	}, nil)
	require.NoError(t, err)
	return store
}

func TestPostgRESTStore_MarkSuccessful(t *testing.T) {
	srv := &rpcServer{}
	store := newTestPostgREST(t, srv)

	require.NoError(t, store.MarkSuccessful(context.Background(), "T1"))

	require.Len(t, srv.calls, 1)
	call := srv.calls[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/rest/v1/rpc/update_amount_transactions", call.path)
	assert.Equal(t, "service-role", call.apikey)
	assert.Equal(t, "Bearer service-role", call.auth)
	assert.Equal(t, map[string]string{"trid": "T1"}, call.body)
}

func TestPostgRESTStore_MarkFailed(t *testing.T) {
	srv := &rpcServer{}
	store := newTestPostgREST(t, srv)

	require.NoError(t, store.MarkFailed(context.Background(), "T2"))

	require.Len(t, srv.calls, 1)
	assert.Equal(t, "/rest/v1/rpc/update_status_failed", srv.calls[0].path)
	assert.Equal(t, map[string]string{"trid": "T2"}, srv.calls[0].body)
}

func TestPostgRESTStore_ErrorBodyIsSurfaced(t *testing.T) {
	srv := &rpcServer{
		status: http.StatusNotFound,
		body:   `{"code":"PGRST202","message":"Could not find the function public.update_status_failed(trid)","details":null,"hint":null}`,
	}
	store := newTestPostgREST(t, srv)

	err := store.MarkFailed(context.Background(), "T2")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStore))

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, http.StatusNotFound, rpcErr.Status)
	assert.Equal(t, "PGRST202", rpcErr.Code)
	assert.Contains(t, err.Error(), "update_status_failed")
}

func TestPostgRESTStore_NonJSONErrorBody(t *testing.T) {
	srv := &rpcServer{status: http.StatusBadGateway, body: "upstream unavailable"}
	store := newTestPostgREST(t, srv)

	err := store.MarkSuccessful(context.Background(), "T1")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "upstream unavailable", rpcErr.Message)
}

func TestPostgRESTStore_Ping(t *testing.T) {
	srv := &rpcServer{status: http.StatusOK, body: "{}"}
	store := newTestPostgREST(t, srv)

	require.NoError(t, store.Ping(context.Background()))
	require.Len(t, srv.calls, 1)
	assert.Equal(t, http.MethodGet, srv.calls[0].method)
	assert.Equal(t, "/rest/v1/", srv.calls[0].path)
}

func TestNewPostgRESTStore_Validation(t *testing.T) {
	_, err := NewPostgRESTStore(config.StoreConfig{ServiceKey: "key"}, nil)
	assert.Error(t, err)

	_, err = NewPostgRESTStore(config.StoreConfig{URL: "not a url", ServiceKey: "key"}, nil)
	assert.Error(t, err)

	_, err = NewPostgRESTStore(config.StoreConfig{URL: "https://project.supabase.co"}, nil)
	assert.Error(t, err)
}

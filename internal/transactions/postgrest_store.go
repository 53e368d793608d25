package transactions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/paybridge/pkg/config"
	pkgerrors "github.com/angelmondragon/paybridge/pkg/errors"
)

const maxErrorBody = 4 << 10

// PostgRESTStore invokes the status procedures through a PostgREST (Supabase)
// endpoint at <url>/rest/v1/rpc/<fn>, authenticated with a service key.
type PostgRESTStore struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// RPCError is the error document PostgREST returns for a failed call.
type RPCError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *RPCError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, msg)
}

func NewPostgRESTStore(cfg config.StoreConfig, client *http.Client) (*PostgRESTStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store url required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store url invalid")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store service key required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PostgRESTStore{
		baseURL:    base,
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		client:     client,
	}, nil
}

func (s *PostgRESTStore) MarkSuccessful(ctx context.Context, transactionID string) error {
	return s.call(ctx, RPCMarkSuccessful, transactionID)
}

func (s *PostgRESTStore) MarkFailed(ctx context.Context, transactionID string) error {
	return s.call(ctx, RPCMarkFailed, transactionID)
}

// Ping requests the API root, which PostgREST answers with its schema.
func (s *PostgRESTStore) Ping(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/rest/v1/", nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "build ping request")
	}
	if err := s.do(req); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "ping store")
	}
	return nil
}

func (s *PostgRESTStore) call(ctx context.Context, fn, transactionID string) error {
	body, err := json.Marshal(map[string]string{rpcParamTransactionID: transactionID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "encode rpc args")
	}
	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/rest/v1/rpc/"+fn, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "build rpc request")
	}
	if err := s.do(req); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, fmt.Sprintf("rpc %s", fn))
	}
	return nil
}

func (s *PostgRESTStore) newRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *PostgRESTStore) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	rpcErr := &RPCError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, rpcErr); err != nil {
			rpcErr.Message = strings.TrimSpace(string(raw))
		}
	}
	return rpcErr
}

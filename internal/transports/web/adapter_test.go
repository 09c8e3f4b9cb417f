package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"riakadm/internal/core"
	"riakadm/internal/storage"
	"riakadm/internal/transports/common"
)

type fakeProvider struct{}

func (p *fakeProvider) Name() string                   { return "riak" }
func (p *fakeProvider) Init(ctx context.Context) error { return nil }
func (p *fakeProvider) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	if cmd != "ringready" {
		return core.Fail("unknown_command", nil), nil
	}
	return core.OK(true), nil
}

type fakeStore struct {
	latest storage.SnapshotRecord
	audit  []storage.AuditEvent
}

func (s *fakeStore) SaveSnapshot(ctx context.Context, rec storage.SnapshotRecord) error {
	s.latest = rec
	return nil
}
func (s *fakeStore) LatestSnapshot(ctx context.Context, module string) (storage.SnapshotRecord, error) {
	return s.latest, nil
}
func (s *fakeStore) SaveAudit(ctx context.Context, ev storage.AuditEvent) error {
	s.audit = append(s.audit, ev)
	return nil
}
func (s *fakeStore) QueryAudit(ctx context.Context, q storage.AuditQuery) ([]storage.AuditEvent, error) {
	return s.audit, nil
}
func (s *fakeStore) Close() error { return nil }

const testToken = "orc-token"

func newTestAdapter(t *testing.T, store *fakeStore) *Adapter {
	t.Helper()
	registry := core.NewRegistry()
	if err := registry.Register(context.Background(), &fakeProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	authz := core.NewAllowlistAuthorizer(map[string][]string{
		"web": {"orchestrator"},
	})
	sum := sha256.Sum256([]byte(testToken))
	cfg := Config{
		Tokens: []TokenEntry{{
			ID:          "t1",
			TokenSHA256: hex.EncodeToString(sum[:]),
			Subject:     "orchestrator",
			Enabled:     true,
		}},
	}
	return NewAdapter(registry, authz, store, common.NewRateLimiter(100, time.Second), cfg)
}

func TestHealthIsOpen(t *testing.T) {
	adapter := newTestAdapter(t, &fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestExecuteRequiresToken(t *testing.T) {
	adapter := newTestAdapter(t, &fakeStore{})
	body := bytes.NewBufferString(`{"module":"riak","command":"ringready","args":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestExecuteRejectsUnknownToken(t *testing.T) {
	adapter := newTestAdapter(t, &fakeStore{})
	body := bytes.NewBufferString(`{"module":"riak","command":"ringready","args":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestExecuteAuthorized(t *testing.T) {
	store := &fakeStore{}
	adapter := newTestAdapter(t, store)
	body := bytes.NewBufferString(`{"module":"riak","command":"ringready","args":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id abc-123, got %q", got)
	}

	var resp struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
		Data      bool   `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || !resp.Data {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if len(store.audit) == 0 {
		t.Fatal("expected audit event for execute")
	}
}

func TestExecuteDeniedModuleNotInAllowlist(t *testing.T) {
	store := &fakeStore{}
	registry := core.NewRegistry()
	_ = registry.Register(context.Background(), &fakeProvider{})
	// Пустой allowlist: ни один subject не допущен.
	authz := core.NewAllowlistAuthorizer(map[string][]string{"web": {}})
	sum := sha256.Sum256([]byte(testToken))
	adapter := NewAdapter(registry, authz, store, nil, Config{
		Tokens: []TokenEntry{{ID: "t1", TokenSHA256: hex.EncodeToString(sum[:]), Subject: "orchestrator", Enabled: true}},
	})

	body := bytes.NewBufferString(`{"module":"riak","command":"ringready","args":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestExecuteRateLimited(t *testing.T) {
	store := &fakeStore{}
	registry := core.NewRegistry()
	_ = registry.Register(context.Background(), &fakeProvider{})
	authz := core.NewAllowlistAuthorizer(map[string][]string{"web": {"orchestrator"}})
	sum := sha256.Sum256([]byte(testToken))
	adapter := NewAdapter(registry, authz, store, common.NewRateLimiter(1, time.Minute), Config{
		Tokens: []TokenEntry{{ID: "t1", TokenSHA256: hex.EncodeToString(sum[:]), Subject: "orchestrator", Enabled: true}},
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		body := bytes.NewBufferString(`{"module":"riak","command":"ringready","args":[]}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
		req.Header.Set("Authorization", "Bearer "+testToken)
		rr := httptest.NewRecorder()
		adapter.routes().ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}
}

func TestExecuteRejectsMalformedBody(t *testing.T) {
	adapter := newTestAdapter(t, &fakeStore{})
	body := bytes.NewBufferString(`{"module":"riak"`)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands/execute", body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLatestSnapshot(t *testing.T) {
	store := &fakeStore{latest: storage.SnapshotRecord{
		Module:  "riak",
		Payload: []byte(`[{"vnode_gets":"0"}]`),
		TS:      time.Now().UTC(),
	}}
	adapter := newTestAdapter(t, store)
	req := httptest.NewRequest(http.MethodGet, "/v1/snapshots/latest?module=riak", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Module  string          `json:"module"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Module != "riak" || len(resp.Payload) == 0 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestLatestSnapshotRequiresModule(t *testing.T) {
	adapter := newTestAdapter(t, &fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/v1/snapshots/latest", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAuditQuery(t *testing.T) {
	store := &fakeStore{audit: []storage.AuditEvent{{
		Subject: "orchestrator",
		Action:  "web:execute",
		Source:  "web",
		Status:  "ok",
		TS:      time.Now().UTC(),
	}}}
	adapter := newTestAdapter(t, store)
	req := httptest.NewRequest(http.MethodGet, "/v1/audit?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	adapter.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Action != "web:execute" {
		t.Fatalf("unexpected items: %#v", resp.Items)
	}
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/luizchaves/host-monitor/internal/api"
	"github.com/luizchaves/host-monitor/internal/api/handler"
	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/probe"
	"github.com/luizchaves/host-monitor/internal/service"
	"github.com/luizchaves/host-monitor/internal/storage"
	"github.com/luizchaves/host-monitor/internal/storage/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeProber answers every echo request unless the address is listed as silent.
type fakeProber struct {
	silent map[string]bool
}

func (f *fakeProber) Probe(ctx context.Context, address string, count int) (*probe.Result, error) {
	if strings.HasSuffix(address, ".invalid") {
		return nil, domain.NewProbeError("cannot resolve "+address, errors.New("no such host"))
	}
	if f.silent[address] {
		return &probe.Result{Alive: false, ICMPs: []domain.ICMP{}}, nil
	}
	res := &probe.Result{Alive: true, Output: "PING " + address}
	for i := 1; i <= count; i++ {
		res.ICMPs = append(res.ICMPs, domain.ICMP{Seq: i, TTL: 57, Time: 11.5})
	}
	res.Stats = domain.PingStats{Transmitted: count, Received: count, Time: float64(count-1) * 1000}
	return res, nil
}

// testServer creates a test server with in-memory storage
type testServer struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
}

type serverOption func(*api.Dependencies)

func withAuthRequired(d *api.Dependencies) { d.AuthRequired = true }

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	return newTestServerWithStore(t, memory.New(), opts...)
}

func newTestServerWithStore(t *testing.T, store storage.Storage, opts ...serverOption) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	users := service.NewUserService(store, tokens)
	deps := api.Dependencies{
		Hosts:  service.NewHostService(store),
		Pings:  service.NewPingService(store, &fakeProber{silent: map[string]bool{"10.255.255.1": true}}, nil),
		Users:  users,
		Tokens: tokens,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testServer{handler: api.NewRouter(deps), tokens: tokens}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) domain.StandardError {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	body := decode[domain.StandardError](t, rr)
	if body.Code != code {
		t.Errorf("Expected code %s, got %q", code, body.Code)
	}
	if body.Message == "" {
		t.Error("Expected a message")
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("GET", "/health", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	resp := decode[map[string]string](t, rr)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}

func TestHostPingScenario(t *testing.T) {
	ts := newTestServer(t)

	// Create host
	rr := ts.request("POST", "/api/hosts", domain.HostInput{
		Name:    "DNS Server",
		Address: "1.1.1.1",
		Tags:    []string{"DNS", "Cloudflare"},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	host := decode[domain.Host](t, rr)
	if host.ID == "" {
		t.Fatal("Expected server-assigned id")
	}
	if got := host.TagNames(); len(got) != 2 || got[0] != "DNS" || got[1] != "Cloudflare" {
		t.Errorf("Expected tags [DNS Cloudflare], got %v", got)
	}

	// Ping it
	rr = ts.request("POST", "/api/hosts/"+host.ID+"/pings/3", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	ping := decode[domain.Ping](t, rr)
	if len(ping.ICMPs) != 3 {
		t.Errorf("Expected 3 icmps, got %d", len(ping.ICMPs))
	}
	if ping.HostID != host.ID {
		t.Errorf("Expected hostId %s, got %s", host.ID, ping.HostID)
	}

	// Ping history
	rr = ts.request("GET", "/api/hosts/"+host.ID+"/pings", nil, "")
	pings := decode[[]domain.Ping](t, rr)
	if len(pings) != 1 || pings[0].Host == nil || pings[0].Host.Name != "DNS Server" {
		t.Errorf("Expected one ping embedding its host, got %s", rr.Body.String())
	}

	rr = ts.request("GET", "/api/pings", nil, "")
	if all := decode[[]domain.Ping](t, rr); len(all) != 1 {
		t.Errorf("Expected 1 ping overall, got %d", len(all))
	}

	// Tags
	rr = ts.request("GET", "/api/tags", nil, "")
	tags := decode[[]domain.Tag](t, rr)
	if len(tags) != 2 || tags[0].Name != "Cloudflare" {
		t.Errorf("Expected tags sorted by name, got %s", rr.Body.String())
	}

	rr = ts.request("GET", "/api/tags/DNS/hosts", nil, "")
	if byTag := decode[[]domain.Host](t, rr); len(byTag) != 1 || byTag[0].ID != host.ID {
		t.Errorf("Expected host under tag DNS, got %s", rr.Body.String())
	}

	// Delete cascades to ping history
	rr = ts.request("DELETE", "/api/hosts/"+host.ID, nil, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/hosts/"+host.ID, nil, "")
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeResourceNotFound)

	rr = ts.request("GET", "/api/pings", nil, "")
	if all := decode[[]domain.Ping](t, rr); len(all) != 0 {
		t.Errorf("Expected ping history to be deleted, got %d", len(all))
	}
}

func TestContentTypeOnlyOnJSONBodies(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("POST", "/api/hosts", domain.HostInput{Name: "gw", Address: "192.168.0.1"}, "")
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type on 201, got %q", ct)
	}
	host := decode[domain.Host](t, rr)

	rr = ts.request("DELETE", "/api/hosts/"+host.ID, nil, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "" {
		t.Errorf("Expected no content type on 204, got %q", ct)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Expected empty body on 204, got %q", rr.Body.String())
	}

	rr = ts.request("DELETE", "/api/hosts/"+host.ID, nil, "")
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type on error, got %q", ct)
	}
}

func TestHostCRUD(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("POST", "/api/hosts", domain.HostInput{Name: "webserver", Address: "10.0.0.1"}, "")
	host := decode[domain.Host](t, rr)

	rr = ts.request("POST", "/api/hosts", domain.HostInput{Name: "Google DNS", Address: "8.8.8.8"}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}

	// Filtered list
	rr = ts.request("GET", "/api/hosts?name=WEB", nil, "")
	if hosts := decode[[]domain.Host](t, rr); len(hosts) != 1 || hosts[0].ID != host.ID {
		t.Errorf("Expected only webserver, got %s", rr.Body.String())
	}

	rr = ts.request("GET", "/api/hosts?name=dns&address=1.1", nil, "")
	if hosts := decode[[]domain.Host](t, rr); len(hosts) != 0 {
		t.Errorf("Expected no match, got %s", rr.Body.String())
	}

	rr = ts.request("GET", "/api/hosts", nil, "")
	if hosts := decode[[]domain.Host](t, rr); len(hosts) != 2 || hosts[0].Name != "webserver" {
		t.Errorf("Expected both hosts in insertion order, got %s", rr.Body.String())
	}

	// Update host
	rr = ts.request("PUT", "/api/hosts/"+host.ID, domain.HostInput{Name: "webserver", Address: "10.0.0.2", Tags: []string{"web"}}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	updated := decode[domain.Host](t, rr)
	if updated.Address != "10.0.0.2" {
		t.Errorf("Expected address '10.0.0.2', got '%s'", updated.Address)
	}
	if !updated.CreatedAt.Equal(host.CreatedAt) {
		t.Errorf("Expected createdAt to be preserved")
	}

	rr = ts.request("GET", "/api/hosts/"+host.ID, nil, "")
	if got := decode[domain.Host](t, rr); got.Address != "10.0.0.2" || len(got.Tags) != 1 {
		t.Errorf("Expected update to persist, got %s", rr.Body.String())
	}

	// Missing host
	rr = ts.request("PUT", "/api/hosts/missing", domain.HostInput{Name: "x", Address: "10.0.0.3"}, "")
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeResourceNotFound)
	rr = ts.request("DELETE", "/api/hosts/missing", nil, "")
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeResourceNotFound)
}

func TestHostValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request("POST", "/api/hosts", domain.HostInput{Address: "1.1.1.1"}, "")
	body := expectError(t, rr, http.StatusBadRequest, domain.ErrCodeValidationError)
	if body.Field != "name" {
		t.Errorf("Expected field name, got %q", body.Field)
	}

	rr = ts.request("POST", "/api/hosts", domain.HostInput{Name: "x"}, "")
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeValidationError)

	req := httptest.NewRequest("POST", "/api/hosts", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeValidationError)
}

func TestPingFailures(t *testing.T) {
	ts := newTestServer(t)

	silent := decode[domain.Host](t, ts.request("POST", "/api/hosts", domain.HostInput{Name: "silent", Address: "10.255.255.1"}, ""))
	bogus := decode[domain.Host](t, ts.request("POST", "/api/hosts", domain.HostInput{Name: "bogus", Address: "nowhere.invalid"}, ""))

	tests := []struct {
		name string
		path string
		code string
	}{
		{"non-numeric count", "/api/hosts/" + silent.ID + "/pings/three", domain.ErrCodeValidationError},
		{"zero count", "/api/hosts/" + silent.ID + "/pings/0", domain.ErrCodeValidationError},
		{"count too large", "/api/hosts/" + silent.ID + "/pings/101", domain.ErrCodeValidationError},
		{"unknown host", "/api/hosts/missing/pings/1", domain.ErrCodeResourceNotFound},
		{"silent host", "/api/hosts/" + silent.ID + "/pings/2", domain.ErrCodeProbeFailed},
		{"unresolvable host", "/api/hosts/" + bogus.ID + "/pings/1", domain.ErrCodeProbeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, ts.request("POST", tt.path, nil, ""), http.StatusBadRequest, tt.code)
		})
	}

	rr := ts.request("GET", "/api/pings", nil, "")
	if pings := decode[[]domain.Ping](t, rr); len(pings) != 0 {
		t.Errorf("Expected no pings recorded, got %d", len(pings))
	}
}

func signUpAndSignIn(t *testing.T, ts *testServer) string {
	t.Helper()
	rr := ts.request("POST", "/api/users", domain.CreateUserRequest{Name: "Alice", Email: "alice@example.com", Password: "s3cret"}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "s3cret") || strings.Contains(rr.Body.String(), "password") {
		t.Errorf("User response leaks credentials: %s", rr.Body.String())
	}

	rr = ts.request("POST", "/api/users/signin", domain.SignInRequest{Email: "alice@example.com", Password: "s3cret"}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[domain.SignInResponse](t, rr)
	if !resp.Auth || resp.Token == "" {
		t.Fatalf("Expected auth token, got %s", rr.Body.String())
	}
	return resp.Token
}

func TestUserLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := signUpAndSignIn(t, ts)

	rr := ts.request("GET", "/api/users/me", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if me := decode[domain.User](t, rr); me.Email != "alice@example.com" {
		t.Errorf("Expected alice, got %s", me.Email)
	}

	// Duplicate email
	rr = ts.request("POST", "/api/users", domain.CreateUserRequest{Name: "A2", Email: "ALICE@example.com", Password: "x"}, "")
	expectError(t, rr, http.StatusBadRequest, domain.ErrCodeResourceAlreadyExists)

	// Wrong password
	rr = ts.request("POST", "/api/users/signin", domain.SignInRequest{Email: "alice@example.com", Password: "nope"}, "")
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	// /users/me is always gated
	rr := ts.request("GET", "/api/users/me", nil, "")
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)

	req := httptest.NewRequest("GET", "/api/users/me", nil)
	req.Header.Set("Authorization", "Basic invalid")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)

	rr = ts.request("GET", "/api/users/me", nil, "not-a-token")
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)

	// Open mode leaves host routes public
	rr = ts.request("GET", "/api/hosts", nil, "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 without auth gate, got %d", rr.Code)
	}
}

func TestAuthGate(t *testing.T) {
	ts := newTestServer(t, withAuthRequired)

	for _, path := range []string{"/api/hosts", "/api/tags", "/api/pings"} {
		rr := ts.request("GET", path, nil, "")
		expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)
	}

	token := signUpAndSignIn(t, ts)
	rr := ts.request("POST", "/api/hosts", domain.HostInput{Name: "gw", Address: "192.168.0.1"}, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 with token, got %d: %s", rr.Code, rr.Body.String())
	}

	// Health stays public
	if rr := ts.request("GET", "/health", nil, ""); rr.Code != http.StatusOK {
		t.Errorf("Expected public health check, got %d", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/nope"},
		{"GET", "/api/nope"},
		{"PATCH", "/api/hosts"},
	} {
		rr := ts.request(tc.method, tc.path, nil, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rr.Code)
			continue
		}
		if body := strings.TrimSpace(rr.Body.String()); body != `{"message":"Content not found!"}` {
			t.Errorf("%s %s: unexpected body %s", tc.method, tc.path, body)
		}
	}
}

// brokenStore fails or panics on selected calls.
type brokenStore struct {
	*memory.Store
}

func (s brokenStore) ListHosts(ctx context.Context, filter domain.HostFilter) ([]*domain.Host, error) {
	return nil, errors.New("connection reset by peer: secret-dsn")
}

func (s brokenStore) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	panic("tag index corrupted")
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	ts := newTestServerWithStore(t, brokenStore{Store: memory.New()})

	for _, path := range []string{"/api/hosts", "/api/tags"} {
		rr := ts.request("GET", path, nil, "")
		body := expectError(t, rr, http.StatusInternalServerError, domain.ErrCodeInternalError)
		if body.Message != "Something broke!" {
			t.Errorf("%s: expected generic message, got %q", path, body.Message)
		}
		if strings.Contains(rr.Body.String(), "secret-dsn") || strings.Contains(rr.Body.String(), "corrupted") {
			t.Errorf("%s: internal detail leaked: %s", path, rr.Body.String())
		}
	}
}

// fakeIdentityProvider stands in for a real OIDC issuer.
type fakeIdentityProvider struct {
	claims *auth.OIDCClaims
	err    error
	nonce  string
}

func (f *fakeIdentityProvider) AuthCodeURL(state, nonce string) string {
	f.nonce = nonce
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeIdentityProvider) Exchange(ctx context.Context, code, nonce string) (*auth.OIDCClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	if nonce != f.nonce {
		return nil, errors.New("nonce mismatch")
	}
	return f.claims, nil
}

func TestOIDCSignIn(t *testing.T) {
	idp := &fakeIdentityProvider{claims: &auth.OIDCClaims{Subject: "s1", Email: "carol@example.com", EmailVerified: true, Name: "Carol"}}
	states, err := auth.NewStateStore(testSecret, "/api/users/oidc", false)
	if err != nil {
		t.Fatalf("NewStateStore: %v", err)
	}

	ts := newTestServer(t, func(d *api.Dependencies) {
		d.OIDC = handler.NewOIDCHandler(idp, states, d.Users)
	})

	rr := ts.request("GET", "/api/users/oidc/login", nil, "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "application/json" {
		t.Errorf("Redirect must not claim a JSON body")
	}
	location, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	state := location.Query().Get("state")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected state cookie, got %d cookies", len(cookies))
	}

	// Callback without the cookie is rejected
	rr = ts.request("GET", "/api/users/oidc/callback?code=abc&state="+url.QueryEscape(state), nil, "")
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)

	req := httptest.NewRequest("GET", "/api/users/oidc/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[domain.SignInResponse](t, rr)

	rr = ts.request("GET", "/api/users/me", nil, resp.Token)
	if me := decode[domain.User](t, rr); me.Email != "carol@example.com" || me.Name != "Carol" {
		t.Errorf("Expected carol, got %s", rr.Body.String())
	}

	// Provider-side denial
	rr = ts.request("GET", "/api/users/oidc/callback?error=access_denied", nil, "")
	expectError(t, rr, http.StatusUnauthorized, domain.ErrCodeUnauthorized)
}

func TestOIDCDisabled(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.request("GET", "/api/users/oidc/login", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when OIDC is disabled, got %d", rr.Code)
	}
}

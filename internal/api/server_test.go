package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parsec/internal/config"
	"parsec/internal/economy"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.APIConfig{ServiceToken: "test-token"}
	econ := economy.NewService(nil, nil, economy.DefaultConfig(), economy.Deps{})
	return New(cfg, nil, econ)
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzNeedsNoToken(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status got %d want 200", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/stocks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status got %d want 401", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/v1/stocks", "wrong-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status got %d want 401", rec.Code)
	}
}

func TestInvalidOwnerTypeRejected(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodGet, "/v1/accounts/wizard/7/balance", "test-token", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status got %d want 400", rec.Code)
	}
}

func TestSelfTransferRejected(t *testing.T) {
	s := testServer(t)
	body := `{"from_type":"player","from_id":7,"to_type":"player","to_id":7,"amount":100}`
	rec := doRequest(t, s, http.MethodPost, "/v1/transfers", "test-token", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status got %d want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "same account") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	s := testServer(t)
	rec := doRequest(t, s, http.MethodPost, "/v1/transfers", "test-token", `{"from_type":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status got %d want 400", rec.Code)
	}
	// Unknown fields are contract violations, not silently dropped.
	rec = doRequest(t, s, http.MethodPost, "/v1/transfers", "test-token", `{"bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status got %d want 400", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if got := bearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := bearerToken("bearer abc"); got != "abc" {
		t.Fatalf("case-insensitive scheme: got %q", got)
	}
	if got := bearerToken("Basic abc"); got != "" {
		t.Fatalf("wrong scheme accepted: %q", got)
	}
	if got := bearerToken(""); got != "" {
		t.Fatalf("empty header: %q", got)
	}
}

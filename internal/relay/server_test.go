package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
	"yieldScope/internal/optimizer"
	"yieldScope/internal/protocol"
)

func newTestServer(t *testing.T, upstream string) *Server {
	t.Helper()
	adapters := []protocol.Adapter{protocol.NewAave(nil, nil), protocol.NewCompound(nil), protocol.NewYearn(nil)}
	scanner := optimizer.NewScanner(adapters, optimizer.NewRanker(optimizer.StaticSignals{}), optimizer.ScannerConfig{Chains: []uint64{137}}, nil)
	srv, err := NewServer(Config{
		Upstream: upstream,
		APIKey:   "secret",
		Defaults: optimizer.ScanRequest{Asset: "USDC", Amount: decimal.NewFromInt(1000), RiskProfile: model.ProfileBalanced},
	}, optimizer.NewOptimizer(scanner), nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing cors header")
	}
}

func TestOpportunities(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities?asset=usdc&amount=500&risk=conservative", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: %d %s", rec.Code, rec.Body.String())
	}
	var resp opportunitiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count == 0 || resp.Count != len(resp.Opportunities) {
		t.Fatalf("count mismatch: %d/%d", resp.Count, len(resp.Opportunities))
	}
	if resp.Request.Asset != "USDC" || resp.Request.RiskProfile != model.ProfileConservative {
		t.Fatalf("request echo mismatch: %+v", resp.Request)
	}
	for _, o := range resp.Opportunities {
		if o.Risk != model.RiskLow {
			t.Fatalf("conservative scan returned %s risk", o.Risk)
		}
		if o.Source != model.SourceFallback {
			t.Fatalf("readers are absent, expected fallback data, got %s", o.Source)
		}
	}
}

func TestOpportunitiesRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, "")
	for _, target := range []string{
		"/api/opportunities?amount=-1",
		"/api/opportunities?risk=reckless",
		"/api/opportunities?fromChain=56",
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestStrategy(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategy?fromChain=137", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status mismatch: %d %s", rec.Code, rec.Body.String())
	}
	var strategy model.SmartStrategy
	if err := json.Unmarshal(rec.Body.Bytes(), &strategy); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(strategy.Allocations) == 0 || strategy.ID == "" {
		t.Fatalf("empty strategy: %+v", strategy)
	}
	if !strategy.TotalAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("defaults not applied: %s", strategy.TotalAmount)
	}
}

func TestStrategyWithoutOpportunities(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategy?asset=FRAX", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestProxyInjectsKey(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gas-price/v1.5/137" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("x") != "1" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization mismatch: %q", got)
		}
		w.Header().Set("Access-Control-Allow-Origin", "https://1inch.io")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/1inch/gas-price/v1.5/137?x=1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"ok":true}` {
		t.Fatalf("proxy mismatch: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("relay must own cors headers, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/1inch/balance/v1.2/1/balances/0x0", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestLatestStrategy(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategy/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without scheduler, got %d", rec.Code)
	}

	srv.latest = func() *model.SmartStrategy { return &model.SmartStrategy{ID: "scheduled"} }
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategy/latest", nil))
	var strategy model.SmartStrategy
	if err := json.Unmarshal(rec.Body.Bytes(), &strategy); err != nil || strategy.ID != "scheduled" {
		t.Fatalf("latest mismatch: %d %s", rec.Code, rec.Body.String())
	}
}

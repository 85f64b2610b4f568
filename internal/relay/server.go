package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/model"
	"yieldScope/internal/optimizer"
)

// ProxyPrefix is the path under which aggregator requests are relayed.
const ProxyPrefix = "/api/1inch"

// Config configures the relay server.
type Config struct {
	// Upstream is the aggregator host; empty uses the public 1inch API.
	Upstream string
	APIKey   string
	// Defaults fill query parameters missing from strategy requests.
	Defaults optimizer.ScanRequest
	// Latest returns the most recent scheduled strategy, if scheduling is enabled.
	Latest func() *model.SmartStrategy
}

// Server relays aggregator calls and serves opportunities and strategies.
type Server struct {
	router    *mux.Router
	optimizer *optimizer.Optimizer
	defaults  optimizer.ScanRequest
	latest    func() *model.SmartStrategy
	logger    *zap.Logger
	started   time.Time
}

// NewServer builds the router.
func NewServer(cfg Config, opt *optimizer.Optimizer, logger *zap.Logger) (*Server, error) {
	if opt == nil {
		return nil, fmt.Errorf("optimizer is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	upstream := strings.TrimSpace(cfg.Upstream)
	if upstream == "" {
		upstream = aggregator.DefaultBaseURL
	}
	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", upstream)
	}

	s := &Server{
		router:    mux.NewRouter(),
		optimizer: opt,
		defaults:  cfg.Defaults,
		latest:    cfg.Latest,
		logger:    logger,
		started:   time.Now(),
	}
	s.setupRoutes(newProxy(target, cfg.APIKey, logger))
	return s, nil
}

func (s *Server) setupRoutes(proxy http.Handler) {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/opportunities", s.handleOpportunities).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/strategy", s.handleStrategy).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/strategy/latest", s.handleLatestStrategy).Methods(http.MethodGet, http.MethodOptions)
	s.router.PathPrefix(ProxyPrefix + "/").Handler(http.StripPrefix(ProxyPrefix, proxy))

	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func newProxy(target *url.URL, apiKey string, logger *zap.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Origin")
			if apiKey != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+apiKey)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			// The CORS middleware owns these headers.
			resp.Header.Del("Access-Control-Allow-Origin")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("relay upstream failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"chains":         s.optimizer.Scanner().Chains(),
	})
}

type opportunitiesResponse struct {
	Request       scanEcho                 `json:"request"`
	Count         int                      `json:"count"`
	Opportunities []model.YieldOpportunity `json:"opportunities"`
	ScannedAt     time.Time                `json:"scanned_at"`
}

type scanEcho struct {
	Asset       string            `json:"asset"`
	Amount      decimal.Decimal   `json:"amount"`
	RiskProfile model.RiskProfile `json:"risk_profile"`
	FromChainID uint64            `json:"from_chain_id,omitempty"`
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	req, err := s.scanRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ops := s.optimizer.Scanner().ScanAllOpportunities(r.Context(), req)
	writeJSON(w, http.StatusOK, opportunitiesResponse{
		Request:       echo(req),
		Count:         len(ops),
		Opportunities: ops,
		ScannedAt:     time.Now().UTC(),
	})
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	req, err := s.scanRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	strategy, err := s.optimizer.GenerateStrategy(r.Context(), req)
	if err != nil {
		if errors.Is(err, optimizer.ErrNoOpportunities) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("generate strategy failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "strategy generation failed")
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (s *Server) handleLatestStrategy(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeError(w, http.StatusNotFound, "scheduled refresh is disabled")
		return
	}
	strategy := s.latest()
	if strategy == nil {
		writeError(w, http.StatusNotFound, "no strategy generated yet")
		return
	}
	writeJSON(w, http.StatusOK, strategy)
}

func (s *Server) scanRequest(q url.Values) (optimizer.ScanRequest, error) {
	req := s.defaults
	if v := strings.TrimSpace(q.Get("asset")); v != "" {
		req.Asset = strings.ToUpper(v)
	}
	if req.Asset == "" {
		return req, fmt.Errorf("asset is required")
	}
	if v := strings.TrimSpace(q.Get("amount")); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return req, fmt.Errorf("invalid amount %q", v)
		}
		req.Amount = amount
	}
	if !req.Amount.IsPositive() {
		return req, fmt.Errorf("amount must be positive")
	}
	if v := q.Get("risk"); v != "" {
		profile, err := model.ParseRiskProfile(v)
		if err != nil {
			return req, err
		}
		req.RiskProfile = profile
	}
	if req.RiskProfile == "" {
		req.RiskProfile = model.ProfileBalanced
	}
	if v := strings.TrimSpace(q.Get("fromChain")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || !model.KnownChain(id) {
			return req, fmt.Errorf("unsupported fromChain %q", v)
		}
		req.FromChainID = id
	}
	return req, nil
}

func echo(req optimizer.ScanRequest) scanEcho {
	return scanEcho{Asset: req.Asset, Amount: req.Amount, RiskProfile: req.RiskProfile, FromChainID: req.FromChainID}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

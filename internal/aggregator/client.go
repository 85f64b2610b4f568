package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public 1inch API host.
const DefaultBaseURL = "https://api.1inch.dev"

// ErrQuoteUnavailable is returned when no cross-chain route can be quoted.
var ErrQuoteUnavailable = errors.New("cross-chain quote unavailable")

// Config configures the client.
type Config struct {
	// BaseURL is the 1inch host, or the relay prefix when Relay is set.
	BaseURL  string
	APIKey   string
	Relay    bool
	Timeout  time.Duration
	CacheTTL time.Duration
	// MaxRetries bounds retries of transport failures, 429 and 5xx responses.
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client talks to the 1inch REST APIs directly or through the relay.
type Client struct {
	baseURL    string
	apiKey     string
	relay      bool
	httpClient *http.Client
	cache      *responseCache
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewClient builds a client. A zero CacheTTL uses DefaultCacheTTL; a negative one disables caching.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	cache, err := newResponseCache(ttl)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		relay:      cfg.Relay,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		retries:    cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		logger:     logger,
	}, nil
}

// Close releases the cache.
func (c *Client) Close() {
	c.cache.close()
}

// CrossChainQuote requests a Fusion+ quote for moving tokens between chains.
func (c *Client) CrossChainQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("quote amount must be positive")
	}
	query := url.Values{}
	query.Set("srcChain", strconv.FormatUint(req.SrcChainID, 10))
	query.Set("dstChain", strconv.FormatUint(req.DstChainID, 10))
	query.Set("srcTokenAddress", req.SrcToken.Hex())
	query.Set("dstTokenAddress", req.DstToken.Hex())
	query.Set("amount", req.Amount.String())
	query.Set("walletAddress", req.Wallet.Hex())
	query.Set("enableEstimate", "true")

	var quote Quote
	if err := c.getJSON(ctx, "/fusion-plus/quoter/v1.0/quote/receive", query, &quote); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if quote.QuoteID == "" {
		return nil, fmt.Errorf("%w: empty quote id", ErrQuoteUnavailable)
	}
	c.logger.Debug("cross-chain quote",
		zap.Uint64("src_chain", req.SrcChainID),
		zap.Uint64("dst_chain", req.DstChainID),
		zap.String("quote_id", quote.QuoteID),
		zap.String("dst_amount", quote.DstTokenAmount),
	)
	return &quote, nil
}

// Balances returns the wallet's token balances (base units keyed by lowercase token address).
func (c *Client) Balances(ctx context.Context, chainID uint64, wallet common.Address) (map[string]string, error) {
	path := fmt.Sprintf("/balance/v1.2/%d/balances/%s", chainID, wallet.Hex())
	var raw map[string]string
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	return lowerKeys(raw), nil
}

// TokenPrices returns USD prices keyed by lowercase token address.
func (c *Client) TokenPrices(ctx context.Context, chainID uint64, tokens []common.Address) (map[string]float64, error) {
	if len(tokens) == 0 {
		return map[string]float64{}, nil
	}
	addrs := make([]string, len(tokens))
	for i, t := range tokens {
		addrs[i] = strings.ToLower(t.Hex())
	}
	key := fmt.Sprintf("price:%d:%s", chainID, strings.Join(addrs, ","))
	if v, ok := c.cache.get(key); ok {
		if prices, ok := v.(map[string]float64); ok {
			return prices, nil
		}
	}

	path := fmt.Sprintf("/price/v1.1/%d/%s", chainID, strings.Join(addrs, ","))
	query := url.Values{}
	query.Set("currency", "USD")
	var raw map[string]json.Number
	if err := c.getJSON(ctx, path, query, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for addr, n := range raw {
		p, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", addr, err)
		}
		prices[strings.ToLower(addr)] = p
	}
	c.cache.set(key, prices)
	return prices, nil
}

// PriceUSD returns a single token price.
func (c *Client) PriceUSD(ctx context.Context, chainID uint64, token common.Address) (float64, error) {
	prices, err := c.TokenPrices(ctx, chainID, []common.Address{token})
	if err != nil {
		return 0, err
	}
	p, ok := prices[strings.ToLower(token.Hex())]
	if !ok {
		return 0, fmt.Errorf("no price for %s on chain %d", token.Hex(), chainID)
	}
	return p, nil
}

// GasPrice returns the chain's EIP-1559 fee tiers.
func (c *Client) GasPrice(ctx context.Context, chainID uint64) (*GasPrice, error) {
	key := fmt.Sprintf("gas:%d", chainID)
	if v, ok := c.cache.get(key); ok {
		if gp, ok := v.(*GasPrice); ok {
			return gp, nil
		}
	}
	var gp GasPrice
	if err := c.getJSON(ctx, fmt.Sprintf("/gas-price/v1.5/%d", chainID), nil, &gp); err != nil {
		return nil, err
	}
	c.cache.set(key, &gp)
	return &gp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	attempt := 0
	return withRetry(ctx, c.retries, c.backoff, func(ctx context.Context) error {
		attempt++
		err := c.fetch(ctx, u, path, out)
		if err != nil && attempt <= c.retries && retryable(err) {
			c.logger.Debug("aggregator request failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})
}

func (c *Client) fetch(ctx context.Context, u, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if !c.relay && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return permanent(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yieldScope/internal/protocol"
)

// ErrNoEndpoint is returned when no subgraph URL is configured for a chain.
var ErrNoEndpoint = errors.New("no subgraph endpoint configured")

// ErrReserveNotFound is returned when the subgraph has no reserve for the asset.
var ErrReserveNotFound = errors.New("reserve not found")

const reserveQuery = `query Reserve($asset: String!) {
  reserves(where: {underlyingAsset: $asset}, first: 1) {
    liquidityRate
    totalATokenSupply
    availableLiquidity
  }
}`

// Client queries Aave protocol subgraphs, one endpoint per chain.
type Client struct {
	endpoints  map[uint64]string
	httpClient *http.Client
}

// NewClient builds a client over per-chain GraphQL endpoints.
func NewClient(endpoints map[uint64]string) *Client {
	copied := make(map[uint64]string, len(endpoints))
	for id, url := range endpoints {
		if strings.TrimSpace(url) != "" {
			copied[id] = url
		}
	}
	return &Client{
		endpoints:  copied,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Empty reports whether no chain has an endpoint.
func (c *Client) Empty() bool {
	return c == nil || len(c.endpoints) == 0
}

type graphRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphError struct {
	Message string `json:"message"`
}

type reserveResponse struct {
	Data struct {
		Reserves []struct {
			LiquidityRate      string `json:"liquidityRate"`
			TotalATokenSupply  string `json:"totalATokenSupply"`
			AvailableLiquidity string `json:"availableLiquidity"`
		} `json:"reserves"`
	} `json:"data"`
	Errors []graphError `json:"errors"`
}

// ReserveRates fetches the reserve of an underlying asset.
func (c *Client) ReserveRates(ctx context.Context, chainID uint64, asset common.Address) (protocol.ReserveRates, error) {
	endpoint, ok := c.endpoints[chainID]
	if !ok {
		return protocol.ReserveRates{}, fmt.Errorf("chain %d: %w", chainID, ErrNoEndpoint)
	}

	payload, err := json.Marshal(graphRequest{
		Query:     reserveQuery,
		Variables: map[string]interface{}{"asset": strings.ToLower(asset.Hex())},
	})
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("query subgraph: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return protocol.ReserveRates{}, fmt.Errorf("subgraph http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded reserveResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return protocol.ReserveRates{}, fmt.Errorf("subgraph error: %s", decoded.Errors[0].Message)
	}
	if len(decoded.Data.Reserves) == 0 {
		return protocol.ReserveRates{}, fmt.Errorf("%s on chain %d: %w", asset.Hex(), chainID, ErrReserveNotFound)
	}

	r := decoded.Data.Reserves[0]
	rate, err := parseBig(r.LiquidityRate)
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("liquidityRate: %w", err)
	}
	supply, err := parseBig(r.TotalATokenSupply)
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("totalATokenSupply: %w", err)
	}
	available, err := parseBig(r.AvailableLiquidity)
	if err != nil {
		return protocol.ReserveRates{}, fmt.Errorf("availableLiquidity: %w", err)
	}

	return protocol.ReserveRates{
		LiquidityRate:      rate,
		TotalSupply:        supply,
		AvailableLiquidity: available,
	}, nil
}

func parseBig(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return v, nil
}

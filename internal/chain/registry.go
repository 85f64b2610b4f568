package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"yieldScope/internal/model"
)

var (
	// ErrNoRPC is returned when no endpoint is configured for a chain.
	ErrNoRPC = errors.New("no rpc endpoint configured")
	// ErrChainMismatch is returned when a node serves a different chain than requested.
	ErrChainMismatch = errors.New("rpc endpoint serves a different chain")
)

// Registry lazily dials one Client per chain.
type Registry struct {
	urls     map[uint64]string
	template string

	mu      sync.Mutex
	clients map[uint64]*Client
}

// NewRegistry builds a registry from explicit URLs and an optional URL template.
// The template may contain {network} and {chain_id} placeholders.
func NewRegistry(urls map[uint64]string, template string) *Registry {
	copied := make(map[uint64]string, len(urls))
	for id, url := range urls {
		copied[id] = url
	}
	return &Registry{
		urls:     copied,
		template: template,
		clients:  make(map[uint64]*Client),
	}
}

// URL resolves the endpoint for a chain.
func (r *Registry) URL(chainID uint64) (string, error) {
	if url, ok := r.urls[chainID]; ok && url != "" {
		return url, nil
	}
	if r.template == "" {
		return "", fmt.Errorf("chain %d: %w", chainID, ErrNoRPC)
	}
	meta := model.LookupChain(chainID)
	if strings.Contains(r.template, "{network}") && meta.Network == "" {
		return "", fmt.Errorf("chain %d has no provider network name: %w", chainID, ErrNoRPC)
	}
	url := strings.ReplaceAll(r.template, "{network}", meta.Network)
	url = strings.ReplaceAll(url, "{chain_id}", strconv.FormatUint(chainID, 10))
	return url, nil
}

// Client returns a connected client for the chain, dialing on first use.
// A freshly dialed node must report the requested chain ID.
func (r *Registry) Client(ctx context.Context, chainID uint64) (*Client, error) {
	r.mu.Lock()
	c, ok := r.clients[chainID]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	url, err := r.URL(chainID)
	if err != nil {
		return nil, err
	}
	c, err = NewClient(ctx, chainID, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	if err := verifyChain(ctx, c); err != nil {
		c.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[chainID]; ok {
		c.Close()
		return existing, nil
	}
	r.clients[chainID] = c
	return c, nil
}

func verifyChain(ctx context.Context, c *Client) error {
	remote, err := c.RemoteChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain %d: eth_chainId: %w", c.ChainID(), err)
	}
	if !remote.IsUint64() || remote.Uint64() != c.ChainID() {
		return fmt.Errorf("chain %d: node reports %s: %w", c.ChainID(), remote, ErrChainMismatch)
	}
	return nil
}

// Close closes every dialed client.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}

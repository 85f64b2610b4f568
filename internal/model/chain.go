package model

import "fmt"

// Chain describes an EVM network the scanner knows about.
type Chain struct {
	ID              uint64
	Name            string
	Network         string
	BlockTimeMillis uint64
	// YieldFactor scales the static APY tables per chain.
	YieldFactor float64
}

var chains = map[uint64]Chain{
	1:     {ID: 1, Name: "Ethereum", Network: "eth-mainnet", BlockTimeMillis: 12000, YieldFactor: 1.0},
	10:    {ID: 10, Name: "Optimism", Network: "opt-mainnet", BlockTimeMillis: 2000, YieldFactor: 1.05},
	137:   {ID: 137, Name: "Polygon", Network: "polygon-mainnet", BlockTimeMillis: 2000, YieldFactor: 1.15},
	8453:  {ID: 8453, Name: "Base", Network: "base-mainnet", BlockTimeMillis: 2000, YieldFactor: 1.2},
	42161: {ID: 42161, Name: "Arbitrum", Network: "arb-mainnet", BlockTimeMillis: 250, YieldFactor: 1.1},
}

// DefaultChainIDs is the scan order used when no chains are configured.
var DefaultChainIDs = []uint64{1, 137, 42161, 10, 8453}

// LookupChain returns chain metadata, synthesizing a name for unknown IDs.
func LookupChain(id uint64) Chain {
	if c, ok := chains[id]; ok {
		return c
	}
	return Chain{ID: id, Name: fmt.Sprintf("chain-%d", id), BlockTimeMillis: 2000, YieldFactor: 1.0}
}

// KnownChain reports whether the chain has static metadata.
func KnownChain(id uint64) bool {
	_, ok := chains[id]
	return ok
}

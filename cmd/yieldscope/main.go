package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	root := &cobra.Command{
		Use:          "yieldscope",
		Short:        "Cross-chain stablecoin yield scanner and strategy executor",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newScanCmd(), newStrategyCmd(), newExecuteCmd(), newServeCmd(), newExecutionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addScanFlags registers the flags every command shares.
func addScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("asset", "USDC", "asset symbol (USDC, USDT, DAI, WETH)")
	flags.String("amount", "1000", "amount to allocate, in asset units")
	flags.String("risk", "balanced", "risk profile (conservative, balanced, aggressive)")
	flags.Uint64("from-chain", 0, "chain currently holding the funds (0 = unknown)")
	flags.StringSlice("chains", nil, "chain IDs to scan (comma-separated, default all supported)")
	flags.StringSlice("rpc-urls", nil, "per-chain RPC URLs (comma-separated chainID=url)")
	flags.String("rpc-template", "", "RPC URL template with {network} or {chain_id}")
	flags.StringSlice("aave-subgraph", nil, "per-chain Aave subgraph URLs (comma-separated chainID=url)")
	flags.String("aggregator-url", "", "1inch API base URL")
	flags.String("aggregator-key", "", "1inch API key")
	flags.String("relay-url", "", "relay base URL; when set the aggregator is reached through it without a key")
	flags.Int("max-parallel", 8, "maximum concurrent protocol reads")
	flags.Int("max-retries", 2, "aggregator retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial aggregator retry backoff")
	flags.Bool("mock", true, "synthesize placeholder opportunities for chains without data")
	flags.Int64("signal-seed", 0, "market signal seed (0 = time based)")
	flags.String("journal", "", "JSONL journal path")
	flags.String("pg-dsn", "", "Postgres DSN for the journal")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

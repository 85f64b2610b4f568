package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"yieldScope/internal/model"
)

func scanFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("asset", "USDC", "")
	flags.String("amount", "1000", "")
	flags.String("risk", "balanced", "")
	flags.Uint64("from-chain", 0, "")
	flags.StringSlice("chains", nil, "")
	flags.StringSlice("rpc-urls", nil, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadParsesFlags(t *testing.T) {
	flags := scanFlags()
	if err := flags.Parse([]string{
		"--asset", "usdt",
		"--amount", "2500.5",
		"--risk", "Aggressive",
		"--from-chain", "137",
		"--chains", "1,137,1",
		"--rpc-urls", "1=https://eth.example,137=https://polygon.example",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Asset != "USDT" {
		t.Fatalf("asset mismatch: %s", cfg.Asset)
	}
	if !cfg.Amount.Equal(decimal.RequireFromString("2500.5")) {
		t.Fatalf("amount mismatch: %s", cfg.Amount)
	}
	if cfg.Risk != model.ProfileAggressive || cfg.FromChain != 137 {
		t.Fatalf("risk/from mismatch: %s %d", cfg.Risk, cfg.FromChain)
	}
	if !reflect.DeepEqual(cfg.Chains, []uint64{1, 137}) {
		t.Fatalf("chains mismatch: %v", cfg.Chains)
	}
	want := map[uint64]string{1: "https://eth.example", 137: "https://polygon.example"}
	if !reflect.DeepEqual(cfg.RPCURLs, want) {
		t.Fatalf("rpc urls mismatch: %v", cfg.RPCURLs)
	}
	if cfg.MaxParallel != 8 || !cfg.Mock {
		t.Fatalf("defaults mismatch: %+v", cfg.Common)
	}
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("YIELDSCOPE_AGGREGATOR_KEY", "secret")
	t.Setenv("YIELDSCOPE_RPC_TEMPLATE", "https://{network}.example/v2/key")
	t.Setenv("YIELDSCOPE_AAVE_SUBGRAPH", "1=https://graph.example/aave")

	cfg, err := Load("", scanFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AggregatorKey != "secret" || cfg.RPCTemplate != "https://{network}.example/v2/key" {
		t.Fatalf("env mismatch: %+v", cfg.Common)
	}
	if cfg.AaveSubgraphs[1] != "https://graph.example/aave" {
		t.Fatalf("subgraph mismatch: %v", cfg.AaveSubgraphs)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yieldscope.yaml")
	body := "asset: DAI\nchains: [10, 8453]\nrpc-urls:\n  \"10\": https://op.example\nmax-retries: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Asset != "DAI" || !reflect.DeepEqual(cfg.Chains, []uint64{10, 8453}) {
		t.Fatalf("config mismatch: %s %v", cfg.Asset, cfg.Chains)
	}
	if cfg.RPCURLs[10] != "https://op.example" || cfg.MaxRetries != 4 {
		t.Fatalf("config mismatch: %+v", cfg.Common)
	}
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	cases := [][]string{
		{"--amount", "0"},
		{"--amount", "abc"},
		{"--risk", "reckless"},
		{"--chains", "1,56"},
		{"--from-chain", "999"},
		{"--rpc-urls", "eth=https://x"},
	}
	for _, args := range cases {
		flags := scanFlags()
		if err := flags.Parse(args); err != nil {
			t.Fatalf("parse %v: %v", args, err)
		}
		if _, err := Load("", flags); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestLoadExecuteModes(t *testing.T) {
	flags := scanFlags()
	flags.String("mode", "simulated", "")
	flags.String("wallet", "", "")
	flags.String("private-key", "", "")
	flags.Duration("swap-delay", 3*time.Second, "")

	if _, err := LoadExecute("", flags); err == nil {
		t.Fatalf("simulated mode without wallet must fail")
	}

	if err := flags.Parse([]string{"--wallet", "0x00000000000000000000000000000000000000aa", "--swap-delay", "10ms"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := LoadExecute("", flags)
	if err != nil {
		t.Fatalf("load execute: %v", err)
	}
	if cfg.Mode != ModeSimulated || cfg.SwapDelay != 10*time.Millisecond {
		t.Fatalf("execute mismatch: %+v", cfg)
	}

	if err := flags.Parse([]string{"--mode", "live"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := LoadExecute("", flags); err == nil {
		t.Fatalf("live mode without key must fail")
	}
}

func TestLoadCommonIgnoresScanInputs(t *testing.T) {
	t.Setenv("YIELDSCOPE_AMOUNT", "-5")
	flags := pflag.NewFlagSet("execution", pflag.ContinueOnError)
	flags.String("journal", "", "")
	flags.String("pg-dsn", "", "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--journal", "data/journal.jsonl", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadCommon("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Journal != "data/journal.jsonl" || cfg.LogLevel != "debug" || cfg.PGDSN != "" {
		t.Fatalf("common mismatch: %+v", cfg)
	}
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"yieldScope/internal/model"
)

// Execution modes.
const (
	ModeSimulated = "simulated"
	ModeLive      = "live"
)

// Common holds the settings shared by every command.
type Common struct {
	RPCURLs       map[uint64]string
	RPCTemplate   string
	Chains        []uint64
	AaveSubgraphs map[uint64]string
	AggregatorURL string
	AggregatorKey string
	RelayURL      string
	MaxParallel   int
	MaxRetries    int
	RetryBackoff  time.Duration
	Mock          bool
	SignalSeed    int64
	Journal       string
	PGDSN         string
	LogLevel      string
}

// ScanConfig configures the scan and strategy commands.
type ScanConfig struct {
	Common
	Asset     string
	Amount    decimal.Decimal
	Risk      model.RiskProfile
	FromChain uint64
}

// Load merges config file, environment variables, and flags into ScanConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ScanConfig{}, err
	}
	return scanFrom(v)
}

// LoadCommon reads only the shared settings, for commands that neither scan nor allocate.
func LoadCommon(cfgFile string, flags *pflag.FlagSet) (Common, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Common{}, err
	}
	return commonFrom(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("YIELDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("asset", "USDC")
	v.SetDefault("amount", "1000")
	v.SetDefault("risk", string(model.ProfileBalanced))
	v.SetDefault("max-parallel", 8)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("mock", true)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func commonFrom(v *viper.Viper) (Common, error) {
	rpcURLs, err := parseChainMap(getStringMap(v, "rpc-urls"))
	if err != nil {
		return Common{}, fmt.Errorf("rpc-urls: %w", err)
	}
	subgraphs, err := parseChainMap(getStringMap(v, "aave-subgraph"))
	if err != nil {
		return Common{}, fmt.Errorf("aave-subgraph: %w", err)
	}
	chains, err := parseChainIDs(getStringSlice(v, "chains"))
	if err != nil {
		return Common{}, fmt.Errorf("chains: %w", err)
	}
	return Common{
		RPCURLs:       rpcURLs,
		RPCTemplate:   v.GetString("rpc-template"),
		Chains:        chains,
		AaveSubgraphs: subgraphs,
		AggregatorURL: v.GetString("aggregator-url"),
		AggregatorKey: v.GetString("aggregator-key"),
		RelayURL:      v.GetString("relay-url"),
		MaxParallel:   v.GetInt("max-parallel"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		Mock:          v.GetBool("mock"),
		SignalSeed:    v.GetInt64("signal-seed"),
		Journal:       v.GetString("journal"),
		PGDSN:         v.GetString("pg-dsn"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

func scanFrom(v *viper.Viper) (ScanConfig, error) {
	common, err := commonFrom(v)
	if err != nil {
		return ScanConfig{}, err
	}
	asset := strings.ToUpper(strings.TrimSpace(v.GetString("asset")))
	if asset == "" {
		return ScanConfig{}, fmt.Errorf("asset is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(v.GetString("amount")))
	if err != nil {
		return ScanConfig{}, fmt.Errorf("amount: %w", err)
	}
	if !amount.IsPositive() {
		return ScanConfig{}, fmt.Errorf("amount must be positive")
	}
	risk, err := model.ParseRiskProfile(v.GetString("risk"))
	if err != nil {
		return ScanConfig{}, err
	}
	from := v.GetUint64("from-chain")
	if from != 0 && !model.KnownChain(from) {
		return ScanConfig{}, fmt.Errorf("from-chain: unsupported chain %d", from)
	}
	return ScanConfig{
		Common:    common,
		Asset:     asset,
		Amount:    amount,
		Risk:      risk,
		FromChain: from,
	}, nil
}

func parseChainIDs(items []string) ([]uint64, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]uint64, 0, len(items))
	seen := make(map[uint64]bool, len(items))
	for _, item := range items {
		id, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", item)
		}
		if !model.KnownChain(id) {
			return nil, fmt.Errorf("unsupported chain %d", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func parseChainMap(in map[string]string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(in))
	for key, value := range in {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", key)
		}
		out[id] = value
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(strings.Split(typed, ","))
	case []string:
		return parseStringMap(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseStringMap(items)
	default:
		return map[string]string{}
	}
}

func parseStringMap(pairs []string) map[string]string {
	out := make(map[string]string)
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

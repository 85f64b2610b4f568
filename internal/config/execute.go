package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

// ExecuteConfig configures the execute command.
type ExecuteConfig struct {
	ScanConfig
	Mode       string
	PrivateKey string
	Wallet     string
	SwapDelay  time.Duration
}

// LoadExecute merges config file, environment variables, and flags into ExecuteConfig.
func LoadExecute(cfgFile string, flags *pflag.FlagSet) (ExecuteConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ExecuteConfig{}, err
	}
	v.SetDefault("mode", ModeSimulated)
	v.SetDefault("swap-delay", 3*time.Second)

	scan, err := scanFrom(v)
	if err != nil {
		return ExecuteConfig{}, err
	}
	cfg := ExecuteConfig{
		ScanConfig: scan,
		Mode:       strings.ToLower(strings.TrimSpace(v.GetString("mode"))),
		PrivateKey: strings.TrimSpace(v.GetString("private-key")),
		Wallet:     strings.TrimSpace(v.GetString("wallet")),
		SwapDelay:  v.GetDuration("swap-delay"),
	}

	switch cfg.Mode {
	case ModeSimulated:
		if cfg.Wallet == "" {
			return ExecuteConfig{}, fmt.Errorf("wallet is required in simulated mode")
		}
	case ModeLive:
		if cfg.PrivateKey == "" {
			return ExecuteConfig{}, fmt.Errorf("private-key is required in live mode")
		}
	default:
		return ExecuteConfig{}, fmt.Errorf("unknown mode %q (want %s or %s)", cfg.Mode, ModeSimulated, ModeLive)
	}
	if cfg.Wallet != "" && !common.IsHexAddress(cfg.Wallet) {
		return ExecuteConfig{}, fmt.Errorf("invalid wallet address %q", cfg.Wallet)
	}
	return cfg, nil
}

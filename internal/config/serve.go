package config

import (
	"github.com/spf13/pflag"
)

// ServeConfig configures the relay server.
type ServeConfig struct {
	ScanConfig
	Listen   string
	Schedule string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}
	v.SetDefault("listen", ":8787")

	scan, err := scanFrom(v)
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		ScanConfig: scan,
		Listen:     v.GetString("listen"),
		Schedule:   v.GetString("schedule"),
	}, nil
}

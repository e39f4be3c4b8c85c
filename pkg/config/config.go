// Package config provides a reusable loader for the hub's configuration
// files and environment variables. It is versioned so that applications
// can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"euclidhub/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a hub process. It mirrors the
// structure of the YAML files under cmd/config.
type Config struct {
	Hub struct {
		Admin       string `mapstructure:"admin" json:"admin"`
		VlpCodeID   uint64 `mapstructure:"vlp_code_id" json:"vlp_code_id"`
		LockOnStart bool   `mapstructure:"lock_on_start" json:"lock_on_start"`
	} `mapstructure:"hub" json:"hub"`

	Ledger struct {
		WALPath          string `mapstructure:"wal_path" json:"wal_path"`
		SnapshotInterval int    `mapstructure:"snapshot_interval" json:"snapshot_interval"`
	} `mapstructure:"ledger" json:"ledger"`

	Transport struct {
		DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds" json:"default_timeout_seconds"`
		ExpirySweepSeconds    int `mapstructure:"expiry_sweep_seconds" json:"expiry_sweep_seconds"`
	} `mapstructure:"transport" json:"transport"`

	HTTP struct {
		FactoryListenAddr string `mapstructure:"factory_listen_addr" json:"factory_listen_addr"`
		QueryListenAddr   string `mapstructure:"query_listen_addr" json:"query_listen_addr"`
		MetricsListenAddr string `mapstructure:"metrics_listen_addr" json:"metrics_listen_addr"`
	} `mapstructure:"http" json:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the EUCLIDHUB_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("EUCLIDHUB_ENV", ""))
}

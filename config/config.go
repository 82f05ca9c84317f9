package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type TokenConfig struct {
	Address         string `mapstructure:"address" json:"address"`
	Symbol          string `mapstructure:"symbol" json:"symbol"`
	TreasuryBalance string `mapstructure:"treasury_balance" json:"treasury_balance"`
}

type Config struct {
	Server struct {
		Port      int64  `mapstructure:"port" json:"port"`
		Host      string `mapstructure:"host" json:"host"`
		JWTSecret string `mapstructure:"jwt_secret" json:"jwt_secret"`
		Mode      string `mapstructure:"mode" json:"mode"`
	} `mapstructure:"server" json:"server"`

	Database struct {
		DSN string `mapstructure:"dsn" json:"dsn"`
	} `mapstructure:"database" json:"database"`

	Redis struct {
		Host     string `mapstructure:"host" json:"host"`
		Port     string `mapstructure:"port" json:"port"`
		User     string `mapstructure:"user" json:"user"`
		Password string `mapstructure:"password" json:"password"`
		DB       int    `mapstructure:"db" json:"db"`
	} `mapstructure:"redis" json:"redis"`

	Datadog struct {
		Host string `mapstructure:"host" json:"host"`
		Port string `mapstructure:"port" json:"port"`
	} `mapstructure:"datadog" json:"datadog"`

	BlockStorage struct {
		Host      string `mapstructure:"host" json:"host"`
		Region    string `mapstructure:"region" json:"region"`
		AccessKey string `mapstructure:"access_key" json:"access_key"`
		SecretKey string `mapstructure:"secret_key" json:"secret_key"`
		Bucket    string `mapstructure:"bucket" json:"bucket"`
	} `mapstructure:"block_storage" json:"block_storage"`

	Payroll struct {
		Owner    string `mapstructure:"owner" json:"owner"`
		Oracle   string `mapstructure:"oracle" json:"oracle"`
		Treasury string `mapstructure:"treasury" json:"treasury"`
		USDToken string `mapstructure:"usd_token" json:"usd_token"`
	} `mapstructure:"payroll" json:"payroll"`

	Ledger struct {
		Mode        string        `mapstructure:"mode" json:"mode"`
		RPC         string        `mapstructure:"rpc" json:"rpc"`
		ChainID     int64         `mapstructure:"chain_id" json:"chain_id"`
		TreasuryKey string        `mapstructure:"treasury_key" json:"treasury_key"`
		Tokens      []TokenConfig `mapstructure:"tokens" json:"tokens"`
	} `mapstructure:"ledger" json:"ledger"`

	Queue struct {
		Concurrency int `mapstructure:"concurrency" json:"concurrency"`
	} `mapstructure:"queue" json:"queue"`

	Scheduler struct {
		SnapshotCron string `mapstructure:"snapshot_cron" json:"snapshot_cron"`
	} `mapstructure:"scheduler" json:"scheduler"`
}

const (
	LedgerModeMemory = "memory"
	LedgerModeEVM    = "evm"
)

func ReadConfig(configName string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "development")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.user", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("datadog.host", "localhost")
	v.SetDefault("datadog.port", "8125")
	v.SetDefault("ledger.mode", LedgerModeMemory)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("scheduler.snapshot_cron", "0 0 * * *")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Ledger.Mode {
	case LedgerModeMemory:
	case LedgerModeEVM:
		if c.Ledger.RPC == "" {
			return fmt.Errorf("ledger.rpc is required in %s mode", LedgerModeEVM)
		}
		if c.Ledger.TreasuryKey == "" {
			return fmt.Errorf("ledger.treasury_key is required in %s mode", LedgerModeEVM)
		}
		if c.Ledger.ChainID <= 0 {
			return fmt.Errorf("ledger.chain_id must be positive")
		}
	default:
		return fmt.Errorf("unknown ledger mode %q", c.Ledger.Mode)
	}
	if c.Payroll.USDToken == "" {
		return fmt.Errorf("payroll.usd_token is required")
	}
	return nil
}

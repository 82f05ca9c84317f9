package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  port: 9090
  jwt_secret: secret
payroll:
  owner: "0x0000000000000000000000000000000000000a01"
  oracle: "0x0000000000000000000000000000000000000a02"
  treasury: "0x0000000000000000000000000000000000000a03"
  usd_token: "0x000000000000000000000000000000000000c001"
ledger:
  mode: memory
  tokens:
    - address: "0x000000000000000000000000000000000000c001"
      symbol: USD
      treasury_balance: "100000000"
`

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config-test.yaml"), []byte(testConfig), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("REDIS_PASSWORD", "from-env")

	cfg, err := ReadConfig("config-test")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.JWTSecret)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, "from-env", cfg.Redis.Password)
	assert.Equal(t, 10, cfg.Queue.Concurrency)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.SnapshotCron)
	require.Len(t, cfg.Ledger.Tokens, 1)
	assert.Equal(t, "100000000", cfg.Ledger.Tokens[0].TreasuryBalance)

	_, err = ReadConfig("does-not-exist")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "memory", mutate: func(c *Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.Ledger.Mode = "paper" }, wantErr: true},
		{name: "evm without rpc", mutate: func(c *Config) { c.Ledger.Mode = LedgerModeEVM }, wantErr: true},
		{name: "evm", mutate: func(c *Config) {
			c.Ledger.Mode = LedgerModeEVM
			c.Ledger.RPC = "http://localhost:8545"
			c.Ledger.TreasuryKey = "deadbeef"
			c.Ledger.ChainID = 1
		}},
		{name: "no usd token", mutate: func(c *Config) { c.Payroll.USDToken = "" }, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c Config
			c.Ledger.Mode = LedgerModeMemory
			c.Payroll.USDToken = "0x000000000000000000000000000000000000c001"
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

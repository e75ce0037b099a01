package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8545", cfg.RPCAddress)
	require.Equal(t, "leveldb", cfg.StorageBackend)
	require.Equal(t, "GLD", cfg.PrimaryToken)

	// The generated file must load back cleanly.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, reloaded.RPCAddress)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.Equal(t, "ZGLD", cfg.SecondaryToken)
	require.Equal(t, uint64(30), cfg.InterestRatePercent)
	require.Equal(t, 100, cfg.LogMaxSizeMB)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing engine account", `StorageBackend = "memory"`},
		{"bad engine account", `
EngineAccount = "not-an-address"
StorageBackend = "memory"
`},
		{"bad backend", `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "flatfile"
`},
		{"bad admin address", `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
AdminAddresses = ["0xzz"]
`},
		{"bad ingot price", `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
IngotPrice = "ten"
`},
		{"duplicate tokens", `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
PrimaryToken = "GLD"
SecondaryToken = "gld"
`},
		{"bad genesis amount", `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
[[Genesis]]
Address = "0x0000000000000000000000000000000000000002"
Token = "GLD"
Amount = "-5"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestFundParams(t *testing.T) {
	path := writeConfig(t, `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"
PrimaryToken = "aur"
SecondaryToken = "zaur"
IngotPrice = "2500"
ParityBps = 5000
InterestRatePercent = 25
MinReferralWithdraw = "50"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	params, err := cfg.FundParams()
	require.NoError(t, err)
	require.Equal(t, "AUR", params.PrimaryToken)
	require.Equal(t, "ZAUR", params.SecondaryToken)
	require.Zero(t, params.IngotPrice.Cmp(big.NewInt(2500)))
	require.Equal(t, uint64(5000), params.ParityBps)
	require.Equal(t, uint64(25), params.InterestRatePercent)
	require.Zero(t, params.MinReferralWithdraw.Cmp(big.NewInt(50)))
	require.NoError(t, params.Validate())
}

func TestLoadGenesisAllocations(t *testing.T) {
	path := writeConfig(t, `
EngineAccount = "0x0000000000000000000000000000000000000001"
StorageBackend = "memory"

[[Genesis]]
Address = "0x0000000000000000000000000000000000000002"
Token = "GLD"
Amount = "1000000"

[[Genesis]]
Address = "0x0000000000000000000000000000000000000003"
Token = "ZGLD"
Amount = "500000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Genesis, 2)
	require.Equal(t, "GLD", cfg.Genesis[0].Token)
	require.Equal(t, "500000", cfg.Genesis[1].Amount)
}

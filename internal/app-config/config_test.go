package appconfig_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	appconfig "github.com/vulpemventures/cosigner/internal/app-config"
	"github.com/vulpemventures/cosigner/internal/infrastructure/network/simnet"
)

func TestAppConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := &appconfig.AppConfig{
			Cluster:          "localnet",
			HandoffRetention: time.Hour,
			AirdropEnabled:   true,
			RepoManagerType:  "inmemory",
			NetworkType:      "simnet",
			NetworkConfig:    simnet.Options{AirdropLimit: 1_000_000_000},
		}
		require.NoError(t, cfg.Validate())
		require.NotNil(t, cfg.RepoManager())
		require.NotNil(t, cfg.Network())
		require.NotNil(t, cfg.AssemblerService())
		require.NotNil(t, cfg.RelayService())
		require.NotNil(t, cfg.FundingService())
		require.NotNil(t, cfg.NonceService())
		require.NotNil(t, cfg.TokenService())
		require.NotNil(t, cfg.NotificationService())
		require.Same(t, cfg.AssemblerService(), cfg.AssemblerService())

		info := cfg.BuildInfo()
		require.Equal(t, "dev", info.Version)
		require.Equal(t, "none", info.Commit)
		require.Equal(t, "unknown", info.Date)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  *appconfig.AppConfig
		}{
			{
				name: "missing cluster",
				cfg: &appconfig.AppConfig{
					RepoManagerType: "inmemory",
					NetworkType:     "simnet",
				},
			},
			{
				name: "unknown cluster",
				cfg: &appconfig.AppConfig{
					Cluster:         "regtest",
					RepoManagerType: "inmemory",
					NetworkType:     "simnet",
				},
			},
			{
				name: "airdrop on mainnet",
				cfg: &appconfig.AppConfig{
					Cluster:         "mainnet-beta",
					AirdropEnabled:  true,
					RepoManagerType: "inmemory",
					NetworkType:     "simnet",
				},
			},
			{
				name: "unknown repo manager",
				cfg: &appconfig.AppConfig{
					Cluster:         "devnet",
					RepoManagerType: "mongo",
					NetworkType:     "simnet",
				},
			},
			{
				name: "invalid badger config",
				cfg: &appconfig.AppConfig{
					Cluster:           "devnet",
					RepoManagerType:   "badger",
					RepoManagerConfig: 10,
					NetworkType:       "simnet",
				},
			},
			{
				name: "unknown network",
				cfg: &appconfig.AppConfig{
					Cluster:         "devnet",
					RepoManagerType: "inmemory",
					NetworkType:     "electrum",
				},
			},
			{
				name: "missing rpc config",
				cfg: &appconfig.AppConfig{
					Cluster:         "devnet",
					RepoManagerType: "inmemory",
					NetworkType:     "rpc",
				},
			},
			{
				name: "invalid simnet config",
				cfg: &appconfig.AppConfig{
					Cluster:         "devnet",
					RepoManagerType: "inmemory",
					NetworkType:     "simnet",
					NetworkConfig:   "simnet",
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.Error(t, tt.cfg.Validate())
			})
		}
	})
}

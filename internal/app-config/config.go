package appconfig

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/config"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	rpc_network "github.com/vulpemventures/cosigner/internal/infrastructure/network/rpc"
	"github.com/vulpemventures/cosigner/internal/infrastructure/network/simnet"
	dbbadger "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/postgres"
)

// AppConfig is the struct holding all configuration options for
// every application service (assembler, relay, funding, nonce, token and
// notification).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - Cluster - (required) The Solana cluster (mainnet-beta, testnet, devnet, localnet).
//   - HandoffRetention - (optional) How long the relay keeps an untouched intent, 0 disables pruning.
//   - AirdropEnabled - (optional) Whether the funding service can request airdrops.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - NetworkType - (required) One of the supported network types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
//   - NetworkConfig - (optional) Custom config args for the network based on its type.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	Cluster          string
	HandoffRetention time.Duration
	AirdropEnabled   bool

	RepoManagerType   string
	NetworkType       string
	RepoManagerConfig interface{}
	NetworkConfig     interface{}

	rm           ports.RepoManager
	network      ports.Network
	assemblerSvc *application.AssemblerService
	relaySvc     *application.RelayService
	fundingSvc   *application.FundingService
	nonceSvc     *application.NonceService
	tokenSvc     *application.TokenService
	notifySvc    *application.NotificationService
}

func (c *AppConfig) Validate() error {
	if len(c.Cluster) == 0 {
		return fmt.Errorf("missing cluster")
	}
	if _, ok := config.SupportedClusters[c.Cluster]; !ok {
		return fmt.Errorf(
			"cluster not supported, must be one of: %s", config.SupportedClusters,
		)
	}
	if c.Cluster == config.MainnetBeta && c.AirdropEnabled {
		return fmt.Errorf("airdrops are not supported on %s", c.Cluster)
	}
	if c.HandoffRetention < 0 {
		return fmt.Errorf("handoff retention must not be negative")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if len(c.NetworkType) == 0 {
		return fmt.Errorf("missing network type")
	}
	if _, ok := config.SupportedNetworks[c.NetworkType]; !ok {
		return fmt.Errorf(
			"network type not supported, must be one of: %s",
			config.SupportedNetworks,
		)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.networkService(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) Network() ports.Network {
	return c.network
}

func (c *AppConfig) AssemblerService() *application.AssemblerService {
	return c.assemblerService()
}

func (c *AppConfig) RelayService() *application.RelayService {
	return c.relayService()
}

func (c *AppConfig) FundingService() *application.FundingService {
	return c.fundingService()
}

func (c *AppConfig) NonceService() *application.NonceService {
	return c.nonceService()
}

func (c *AppConfig) TokenService() *application.TokenService {
	return c.tokenService()
}

func (c *AppConfig) NotificationService() *application.NotificationService {
	return c.notificationService()
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	case "postgres":
		dbConfig, ok := c.RepoManagerConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be postgresdb.DbConfig")
		}

		rm, err := postgresdb.NewRepoManager(dbConfig)
		if err != nil {
			return nil, err
		}

		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) networkService() (ports.Network, error) {
	if c.network != nil {
		return c.network, nil
	}

	switch c.NetworkType {
	case "simnet":
		opts := simnet.Options{}
		if c.NetworkConfig != nil {
			args, ok := c.NetworkConfig.(simnet.Options)
			if !ok {
				return nil, fmt.Errorf(
					"invalid network config type, must be simnet.Options",
				)
			}
			opts = args
		}
		c.network = simnet.NewNetwork(opts)
		return c.network, nil
	case "rpc":
		if c.NetworkConfig == nil {
			return nil, fmt.Errorf("missing network config args")
		}
		args, ok := c.NetworkConfig.(rpc_network.ServiceArgs)
		if !ok {
			return nil, fmt.Errorf(
				"invalid network config type, must be rpc_network.ServiceArgs",
			)
		}
		network, err := rpc_network.NewService(args)
		if err != nil {
			return nil, err
		}
		c.network = network
		return c.network, nil
	default:
		return nil, fmt.Errorf("unknown network type")
	}
}

func (c *AppConfig) assemblerService() *application.AssemblerService {
	if c.assemblerSvc != nil {
		return c.assemblerSvc
	}

	network, _ := c.networkService()
	c.assemblerSvc = application.NewAssemblerService(network)
	return c.assemblerSvc
}

func (c *AppConfig) relayService() *application.RelayService {
	if c.relaySvc != nil {
		return c.relaySvc
	}

	rm, _ := c.repoManager()
	c.relaySvc = application.NewRelayService(
		rm, c.assemblerService(), c.HandoffRetention,
	)
	return c.relaySvc
}

func (c *AppConfig) fundingService() *application.FundingService {
	if c.fundingSvc != nil {
		return c.fundingSvc
	}

	network, _ := c.networkService()
	c.fundingSvc = application.NewFundingService(network, c.AirdropEnabled)
	return c.fundingSvc
}

func (c *AppConfig) nonceService() *application.NonceService {
	if c.nonceSvc != nil {
		return c.nonceSvc
	}

	network, _ := c.networkService()
	c.nonceSvc = application.NewNonceService(network, c.assemblerService())
	return c.nonceSvc
}

func (c *AppConfig) tokenService() *application.TokenService {
	if c.tokenSvc != nil {
		return c.tokenSvc
	}

	network, _ := c.networkService()
	c.tokenSvc = application.NewTokenService(network, c.assemblerService())
	return c.tokenSvc
}

func (c *AppConfig) notificationService() *application.NotificationService {
	if c.notifySvc != nil {
		return c.notifySvc
	}

	rm, _ := c.repoManager()
	c.notifySvc = application.NewNotificationService(rm)
	return c.notifySvc
}

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	appconfig "github.com/vulpemventures/cosigner/internal/app-config"
	"github.com/vulpemventures/cosigner/internal/config"
	rpc_network "github.com/vulpemventures/cosigner/internal/infrastructure/network/rpc"
	postgresdb "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/postgres"
	"github.com/vulpemventures/cosigner/internal/interfaces"
	grpc_interface "github.com/vulpemventures/cosigner/internal/interfaces/grpc"
	"github.com/vulpemventures/cosigner/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	dbType           = config.GetString(config.DatabaseTypeKey)
	networkType      = config.GetString(config.NetworkTypeKey)
	cluster          = config.GetString(config.ClusterKey)
	rpcUrl           = config.GetString(config.RpcUrlKey)
	wsUrl            = config.GetString(config.WsUrlKey)
	commitment       = config.GetCommitment()
	logLevel         = config.GetInt(config.LogLevelKey)
	datadir          = config.GetDatadir()
	port             = config.GetInt(config.PortKey)
	profilerPort     = config.GetInt(config.ProfilerPortKey)
	noTLS            = config.GetBool(config.NoTLSKey)
	noProfiler       = config.GetBool(config.NoProfilerKey)
	airdropEnabled   = config.IsAirdropEnabled()
	dbDir            = filepath.Join(datadir, config.DbLocation)
	tlsDir           = filepath.Join(datadir, config.TLSLocation)
	profilerDir      = filepath.Join(datadir, config.ProfilerLocation)
	tlsExtraIPs      = config.GetStringSlice(config.TLSExtraIPKey)
	tlsExtraDomains  = config.GetStringSlice(config.TLSExtraDomainKey)
	statsInterval    = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	handoffRetention = time.Duration(config.GetInt(config.HandoffRetentionKey)) * time.Second
)

func main() {
	log.SetLevel(log.Level(logLevel))

	if profilerEnabled := !noProfiler; profilerEnabled {
		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
			Namespace:     "cosigner",
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}

		profilerSvc.Start()
		defer func() {
			profilerSvc.Stop()
		}()
	}

	serviceCfg := grpc_interface.ServiceConfig{
		Port:         port,
		NoTLS:        noTLS,
		TLSLocation:  tlsDir,
		ExtraIPs:     tlsExtraIPs,
		ExtraDomains: tlsExtraDomains,
	}
	appCfg := &appconfig.AppConfig{
		Version:           version,
		Commit:            commit,
		Date:              date,
		Cluster:           cluster,
		HandoffRetention:  handoffRetention,
		AirdropEnabled:    airdropEnabled,
		RepoManagerType:   dbType,
		NetworkType:       networkType,
		RepoManagerConfig: repoManagerConfig(),
		NetworkConfig:     networkConfig(),
	}

	serviceManager, err := interfaces.NewGrpcServiceManager(serviceCfg, appCfg)
	if err != nil {
		log.WithError(err).Fatal("service: error while initializing")
	}
	defer func() {
		serviceManager.Service.Stop()
	}()

	if err := serviceManager.Service.Start(); err != nil {
		log.WithError(err).Fatal("service: error while starting")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
}

func repoManagerConfig() interface{} {
	switch dbType {
	case "badger":
		return dbDir
	case "postgres":
		return postgresdb.DbConfig{
			DbUser:             config.GetString(config.DbUserKey),
			DbPassword:         config.GetString(config.DbPassKey),
			DbHost:             config.GetString(config.DbHostKey),
			DbPort:             config.GetInt(config.DbPortKey),
			DbName:             config.GetString(config.DbNameKey),
			MigrationSourceURL: config.GetString(config.DbMigrationPath),
		}
	default:
		return nil
	}
}

func networkConfig() interface{} {
	if networkType != "rpc" {
		return nil
	}
	return rpc_network.ServiceArgs{
		Cluster:    cluster,
		RPCAddr:    rpcUrl,
		WSAddr:     wsUrl,
		Commitment: commitment,
	}
}

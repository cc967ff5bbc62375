package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	// DatadirKey is the key to customize the cosigner datadir.
	DatadirKey = "DATADIR"
	// DatabaseTypeKey is the key to customize the type of database to use.
	DatabaseTypeKey = "DATABASE_TYPE"
	// NetworkTypeKey is the key to customize the type of network the intents
	// are submitted to.
	NetworkTypeKey = "NETWORK_TYPE"
	// ClusterKey is the key to customize the Solana cluster.
	ClusterKey = "CLUSTER"
	// RpcUrlKey is the key to override the rpc endpoint of the cluster.
	RpcUrlKey = "RPC_URL"
	// WsUrlKey is the key to override the websocket endpoint of the cluster.
	WsUrlKey = "WS_URL"
	// CommitmentKey is the key to customize the commitment level used for
	// queries and confirmations.
	CommitmentKey = "COMMITMENT"
	// PortKey is the key to customize the port where the relay will be
	// listening to.
	PortKey = "PORT"
	// ProfilerPortKey is the key to customize the port where the profiler will
	// be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// TLSExtraIPKey is the key to bind one or more public IPs to the TLS key pair.
	// Should be used only when enabling TLS.
	TLSExtraIPKey = "TLS_EXTRA_IP"
	// TLSExtraDomainKey is the key to bind one or more public dns domains to the
	// TLS key pair. Should be used only when enabling TLS.
	TLSExtraDomainKey = "TLS_EXTRA_DOMAIN"
	// NoTLSKey is the key to disable TLS encryption.
	NoTLSKey = "NO_TLS"
	// NoProfilerKey is the key to disable Prometheus profiling.
	NoProfilerKey = "NO_PROFILER"
	// StatsIntervalKey is the key to customize the interval for the profiled to
	// gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"
	// HandoffRetentionKey is the key to customize how long an untouched intent
	// is kept by the relay before being pruned.
	HandoffRetentionKey = "HANDOFF_RETENTION_IN_SECONDS"
	// AirdropKey is the key to enable airdrops on clusters that support them.
	AirdropKey = "ENABLE_AIRDROP"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// TLSLocation is the folder inside the datadir containing TLS key and
	// certificate.
	TLSLocation = "tls"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
	// DbUserKey is user used to connect to db
	DbUserKey = "DB_USER"
	// DbPassKey is password used to connect to db
	DbPassKey = "DB_PASS"
	// DbHostKey is host where db is installed
	DbHostKey = "DB_HOST"
	// DbPortKey is port on which db is listening
	DbPortKey = "DB_PORT"
	// DbNameKey is name of database
	DbNameKey = "DB_NAME"
	// DbMigrationPath is the path to migration files
	DbMigrationPath = "DB_MIGRATION_PATH"

	MainnetBeta = "mainnet-beta"
)

var (
	vip *viper.Viper

	defaultDatadir          = btcutil.AppDataDir("cosignerd", false)
	defaultDbType           = "badger"
	defaultNetworkType      = "rpc"
	defaultCluster          = "devnet"
	defaultCommitment       = domain.StatusConfirmed.String()
	defaultPort             = 18100
	defaultLogLevel         = 4
	defaultProfilerPort     = 18101
	defaultStatsInterval    = 600  // 10 minutes
	defaultHandoffRetention = 3600 // 1 hour

	SupportedClusters = supportedType{
		MainnetBeta: {},
		"testnet":   {},
		"devnet":    {},
		"localnet":  {},
	}
	SupportedDbs = supportedType{
		"badger":   {},
		"inmemory": {},
		"postgres": {},
	}
	SupportedNetworks = supportedType{
		"rpc":    {},
		"simnet": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("COSIGNER")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DatabaseTypeKey, defaultDbType)
	vip.SetDefault(NetworkTypeKey, defaultNetworkType)
	vip.SetDefault(ClusterKey, defaultCluster)
	vip.SetDefault(CommitmentKey, defaultCommitment)
	vip.SetDefault(PortKey, defaultPort)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(NoTLSKey, false)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)
	vip.SetDefault(HandoffRetentionKey, defaultHandoffRetention)
	vip.SetDefault(DbUserKey, "root")
	vip.SetDefault(DbPassKey, "secret")
	vip.SetDefault(DbHostKey, "127.0.0.1")
	vip.SetDefault(DbPortKey, 5432)
	vip.SetDefault(DbNameKey, "cosignerd-db-pg")
	vip.SetDefault(DbMigrationPath, "file://internal/infrastructure/storage/db/postgres/migration")

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	cluster := GetString(ClusterKey)
	if _, ok := SupportedClusters[cluster]; !ok {
		return fmt.Errorf("unknown cluster, must be one of %s", SupportedClusters)
	}

	dbType := GetString(DatabaseTypeKey)
	if _, ok := SupportedDbs[dbType]; !ok {
		return fmt.Errorf("unsupported database type, must be one of %s", SupportedDbs)
	}

	networkType := GetString(NetworkTypeKey)
	if _, ok := SupportedNetworks[networkType]; !ok {
		return fmt.Errorf(
			"unsupported network type, must be one of %s", SupportedNetworks,
		)
	}

	if _, ok := domain.ParseConfirmationStatus(GetString(CommitmentKey)); !ok {
		return fmt.Errorf(
			"invalid commitment, must be one of processed | confirmed | finalized",
		)
	}

	if url := GetString(WsUrlKey); url != "" &&
		!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fmt.Errorf("invalid ws url, must start with ws:// or wss://")
	}

	if cluster == MainnetBeta && GetBool(AirdropKey) {
		return fmt.Errorf("airdrops are not supported on %s", MainnetBeta)
	}

	if GetInt(HandoffRetentionKey) < 0 {
		return fmt.Errorf("handoff retention must not be negative")
	}

	port := GetInt(PortKey)
	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		profilerPort := GetInt(ProfilerPortKey)
		if port == profilerPort {
			return fmt.Errorf("port and profiler port must not be equal")
		}
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(ClusterKey))
}

func GetCommitment() domain.ConfirmationStatus {
	status, _ := domain.ParseConfirmationStatus(GetString(CommitmentKey))
	return status
}

// IsAirdropEnabled returns whether airdrops are allowed, which is the case
// by default on every cluster except mainnet-beta.
func IsAirdropEnabled() bool {
	if GetString(ClusterKey) == MainnetBeta {
		return false
	}
	if !IsSet(AirdropKey) {
		return true
	}
	return GetBool(AirdropKey)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}

	noTls := GetBool(NoTLSKey)
	if noTls {
		return nil
	}
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, TLSLocation)); err != nil {
		return err
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

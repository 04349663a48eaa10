package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
var (
	DefaultNemPeerDir = ".nem-peer"
	defaultConfigDir  = "config"
	defaultDataDir    = "data"

	defaultConfigFileName = "config.toml"
	defaultNodeKeyName    = "node_key.json"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultNodeKeyPath    = filepath.Join(defaultConfigDir, defaultNodeKeyName)
)

// Config defines the top level configuration for a peer node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Peer            *PeerConfig            `mapstructure:"peer"`
	Trust           *TrustConfig           `mapstructure:"trust"`
	TimeSync        *TimeSyncConfig        `mapstructure:"timesync"`
	Sync            *SyncConfig            `mapstructure:"sync"`
	Schedule        *ScheduleConfig        `mapstructure:"schedule"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a peer node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Peer:            DefaultPeerConfig(),
		Trust:           DefaultTrustConfig(),
		TimeSync:        DefaultTimeSyncConfig(),
		Sync:            DefaultSyncConfig(),
		Schedule:        DefaultScheduleConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Peer:            TestPeerConfig(),
		Trust:           TestTrustConfig(),
		TimeSync:        DefaultTimeSyncConfig(),
		Sync:            DefaultSyncConfig(),
		Schedule:        TestScheduleConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Peer.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [peer] section")
	}
	if err := cfg.Trust.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [trust] section")
	}
	if err := cfg.TimeSync.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [timesync] section")
	}
	if err := cfg.Sync.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [sync] section")
	}
	if err := cfg.Schedule.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [schedule] section")
	}
	return errors.Wrap(
		cfg.Instrumentation.ValidateBasic(),
		"error in [instrumentation] section",
	)
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a peer node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory
	DBPath string `mapstructure:"db-dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`

	// A JSON file containing the private key identifying this node
	NodeKey string `mapstructure:"node-key-file"`
}

// DefaultBaseConfig returns a default base configuration for a peer node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		NodeKey:   defaultNodeKeyPath,
		Moniker:   defaultMoniker,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
	}
}

// TestBaseConfig returns a base configuration for testing a peer node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = "memdb"
	return cfg
}

// NodeKeyFile returns the full path to the node_key.json file
func (cfg BaseConfig) NodeKeyFile() string {
	return rootify(cfg.NodeKey, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log format (must be 'plain' or 'json')")
	}
	return nil
}

// DefaultLogLevel defines a default log level as INFO.
const DefaultLogLevel = "info"

//-----------------------------------------------------------------------------
// PeerConfig

// PeerConfig defines the configuration options for talking to other nodes
type PeerConfig struct {
	// Endpoint other nodes use to reach this node
	Endpoint string `mapstructure:"endpoint"`

	// Address the node API listens on
	ListenAddress string `mapstructure:"laddr"`

	// Network the node belongs to. Nodes of other networks are incompatible.
	NetworkID int `mapstructure:"network-id"`

	// Comma separated list of seed nodes, formatted as
	// "public-key@protocol://host:port". The local node counts as pre-trusted
	// when its key is listed.
	PreTrustedNodes string `mapstructure:"pre-trusted-nodes"`

	// Time to wait for a connection to another node
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`

	// Time to wait for a response once connected
	ReadTimeout time.Duration `mapstructure:"read-timeout"`

	// Maximum number of partners per chain synchronization round
	ChainSyncNodes int `mapstructure:"chain-sync-nodes"`

	// Maximum number of nodes refreshed per round
	RefreshNodes int `mapstructure:"refresh-nodes"`

	// Maximum number of partners per time synchronization round
	TimeSyncNodes int `mapstructure:"time-sync-nodes"`

	// Nodes below this importance are never time synchronization partners
	MinImportance float64 `mapstructure:"min-importance"`

	// Maximum number of newly discovered nodes probed per refresh round
	MaxNewNodes int `mapstructure:"max-new-nodes"`

	// How long the experiences reported by another node are kept
	ExperienceRetention time.Duration `mapstructure:"experience-retention"`

	// Requests per minute a single client may send to the node API.
	// 0 - unlimited.
	APIRateLimit int `mapstructure:"api-rate-limit"`
}

// DefaultPeerConfig returns a default configuration for the peer layer
func DefaultPeerConfig() *PeerConfig {
	return &PeerConfig{
		Endpoint:            "http://127.0.0.1:7890",
		ListenAddress:       "tcp://0.0.0.0:7890",
		NetworkID:           104,
		PreTrustedNodes:     "",
		ConnectTimeout:      2 * time.Second,
		ReadTimeout:         10 * time.Second,
		ChainSyncNodes:      5,
		RefreshNodes:        10,
		TimeSyncNodes:       20,
		MinImportance:       0.0001,
		MaxNewNodes:         20,
		ExperienceRetention: 24 * time.Hour,
		APIRateLimit:        600,
	}
}

// TestPeerConfig returns a configuration for testing the peer layer
func TestPeerConfig() *PeerConfig {
	cfg := DefaultPeerConfig()
	cfg.ListenAddress = "tcp://127.0.0.1:0"
	cfg.NetworkID = -104
	cfg.ConnectTimeout = 100 * time.Millisecond
	cfg.ReadTimeout = 500 * time.Millisecond
	return cfg
}

// PreTrustedNodeList splits PreTrustedNodes into its entries.
func (cfg *PeerConfig) PreTrustedNodeList() []string {
	return splitAndTrimEmpty(cfg.PreTrustedNodes, ",", " ")
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *PeerConfig) ValidateBasic() error {
	if cfg.Endpoint == "" {
		return errors.New("endpoint can't be empty")
	}
	if _, _, err := net.SplitHostPort(strings.TrimPrefix(cfg.ListenAddress, "tcp://")); err != nil {
		return errors.Wrap(err, "invalid laddr")
	}
	if cfg.ConnectTimeout <= 0 {
		return errors.New("connect-timeout must be positive")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read-timeout must be positive")
	}
	if cfg.ChainSyncNodes <= 0 || cfg.RefreshNodes <= 0 || cfg.TimeSyncNodes <= 0 {
		return errors.New("node selection limits must be positive")
	}
	if cfg.MinImportance < 0 {
		return errors.New("min-importance can't be negative")
	}
	if cfg.MaxNewNodes < 0 {
		return errors.New("max-new-nodes can't be negative")
	}
	if cfg.ExperienceRetention <= 0 {
		return errors.New("experience-retention must be positive")
	}
	if cfg.APIRateLimit < 0 {
		return errors.New("api-rate-limit can't be negative")
	}
	for _, entry := range cfg.PreTrustedNodeList() {
		if !strings.Contains(entry, "@") {
			return fmt.Errorf("pre-trusted node %q must look like public-key@protocol://host:port", entry)
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// TrustConfig

// TrustConfig defines the parameters of the trust computation
type TrustConfig struct {
	// Maximum number of iterations of the trust computation
	MaxIterations int `mapstructure:"max-iterations"`

	// Weight of the pre-trusted nodes in every iteration, in [0, 1]
	Alpha float64 `mapstructure:"alpha"`

	// The computation stops once the trust vector changes less than this
	Epsilon float64 `mapstructure:"epsilon"`

	// Nodes with fewer calls than this get a share of the trust
	MinCommunication int64 `mapstructure:"min-communication"`

	// Percentage of the trust given to nodes with little communication
	LowComWeight float64 `mapstructure:"low-com-weight"`

	// Spread the pre-trust over all nodes when no pre-trusted node is
	// configured. Only meant for development networks.
	AllowEmptyPreTrust bool `mapstructure:"allow-empty-pre-trust"`
}

// DefaultTrustConfig returns the parameters used by production nodes
func DefaultTrustConfig() *TrustConfig {
	return &TrustConfig{
		MaxIterations:    20,
		Alpha:            0.1,
		Epsilon:          0.01,
		MinCommunication: 10,
		LowComWeight:     30,
	}
}

// TestTrustConfig returns trust parameters for testing
func TestTrustConfig() *TrustConfig {
	cfg := DefaultTrustConfig()
	cfg.AllowEmptyPreTrust = true
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *TrustConfig) ValidateBasic() error {
	if cfg.MaxIterations <= 0 {
		return errors.New("max-iterations must be positive")
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return fmt.Errorf("alpha %v is not in [0, 1]", cfg.Alpha)
	}
	if cfg.Epsilon <= 0 {
		return errors.New("epsilon must be positive")
	}
	if cfg.MinCommunication < 0 {
		return errors.New("min-communication can't be negative")
	}
	if cfg.LowComWeight < 0 || cfg.LowComWeight > 100 {
		return fmt.Errorf("low-com-weight %v is not in [0, 100]", cfg.LowComWeight)
	}
	return nil
}

//-----------------------------------------------------------------------------
// TimeSyncConfig

// TimeSyncConfig defines the configuration of the network clock
type TimeSyncConfig struct {
	// Run time synchronization rounds
	Enable bool `mapstructure:"enable"`

	// Offsets smaller than this do not change the clock
	AdjustmentThreshold time.Duration `mapstructure:"adjustment-threshold"`

	// Height the configured importances are valid at
	ImportanceHeight int64 `mapstructure:"importance-height"`
}

// DefaultTimeSyncConfig returns a default configuration for the network clock
func DefaultTimeSyncConfig() *TimeSyncConfig {
	return &TimeSyncConfig{
		Enable:              true,
		AdjustmentThreshold: 75 * time.Millisecond,
		ImportanceHeight:    1,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *TimeSyncConfig) ValidateBasic() error {
	if cfg.AdjustmentThreshold < 0 {
		return errors.New("adjustment-threshold can't be negative")
	}
	if cfg.ImportanceHeight < 1 {
		return errors.New("importance-height must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// SyncConfig

// SyncConfig defines the configuration of block and transaction
// synchronization
type SyncConfig struct {
	// Time stamp of the genesis block, RFC 3339
	GenesisTime string `mapstructure:"genesis-time"`

	// Maximum number of blocks that may be rolled back
	MaxRewrite int64 `mapstructure:"max-rewrite"`

	// Maximum number of hashes a node may return per request
	MaxHashes int `mapstructure:"max-hashes"`

	// How far a block time stamp may lie in the future
	MaxFutureTime time.Duration `mapstructure:"max-future-time"`

	// Maximum number of unconfirmed transactions kept in memory
	TxPoolCapacity int `mapstructure:"tx-pool-capacity"`
}

// DefaultSyncConfig returns a default configuration for synchronization
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		GenesisTime:    "2015-03-29T00:06:25Z",
		MaxRewrite:     360,
		MaxHashes:      400,
		MaxFutureTime:  10 * time.Second,
		TxPoolCapacity: 5000,
	}
}

// GenesisTimestamp parses GenesisTime.
func (cfg *SyncConfig) GenesisTimestamp() (time.Time, error) {
	return time.Parse(time.RFC3339, cfg.GenesisTime)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *SyncConfig) ValidateBasic() error {
	if _, err := cfg.GenesisTimestamp(); err != nil {
		return errors.Wrap(err, "invalid genesis-time")
	}
	if cfg.MaxRewrite <= 0 {
		return errors.New("max-rewrite must be positive")
	}
	if cfg.MaxHashes <= 0 {
		return errors.New("max-hashes must be positive")
	}
	if cfg.MaxFutureTime < 0 {
		return errors.New("max-future-time can't be negative")
	}
	if cfg.TxPoolCapacity <= 0 {
		return errors.New("tx-pool-capacity must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// ScheduleConfig

// ScheduleConfig defines how often the periodic tasks run
type ScheduleConfig struct {
	// Number of tasks that may run at the same time
	Workers int64 `mapstructure:"workers"`

	// Node refresh starts every refresh-min-interval and slows down
	// linearly to refresh-max-interval over refresh-ramp-up
	RefreshMinInterval time.Duration `mapstructure:"refresh-min-interval"`
	RefreshMaxInterval time.Duration `mapstructure:"refresh-max-interval"`
	RefreshRampUp      time.Duration `mapstructure:"refresh-ramp-up"`

	// Time synchronization runs time-sync-initial-rounds times every
	// time-sync-min-interval, then slows down linearly to
	// time-sync-max-interval over time-sync-ramp-up
	TimeSyncInitialRounds int           `mapstructure:"time-sync-initial-rounds"`
	TimeSyncMinInterval   time.Duration `mapstructure:"time-sync-min-interval"`
	TimeSyncMaxInterval   time.Duration `mapstructure:"time-sync-max-interval"`
	TimeSyncRampUp        time.Duration `mapstructure:"time-sync-ramp-up"`

	ChainSyncInterval       time.Duration `mapstructure:"chain-sync-interval"`
	TransactionSyncInterval time.Duration `mapstructure:"transaction-sync-interval"`
	BroadcastInterval       time.Duration `mapstructure:"broadcast-interval"`
	PruneInterval           time.Duration `mapstructure:"prune-interval"`
	CheckpointInterval      time.Duration `mapstructure:"checkpoint-interval"`
}

// DefaultScheduleConfig returns the intervals of a production node
func DefaultScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		Workers:                 4,
		RefreshMinInterval:      time.Second,
		RefreshMaxInterval:      5 * time.Minute,
		RefreshRampUp:           12 * time.Hour,
		TimeSyncInitialRounds:   15,
		TimeSyncMinInterval:     time.Minute,
		TimeSyncMaxInterval:     time.Hour,
		TimeSyncRampUp:          6 * time.Hour,
		ChainSyncInterval:       5 * time.Second,
		TransactionSyncInterval: 30 * time.Second,
		BroadcastInterval:       5 * time.Minute,
		PruneInterval:           time.Hour,
		CheckpointInterval:      10 * time.Minute,
	}
}

// TestScheduleConfig returns short intervals for testing
func TestScheduleConfig() *ScheduleConfig {
	cfg := DefaultScheduleConfig()
	cfg.RefreshMinInterval = 10 * time.Millisecond
	cfg.RefreshMaxInterval = 100 * time.Millisecond
	cfg.RefreshRampUp = time.Second
	cfg.TimeSyncInitialRounds = 1
	cfg.TimeSyncMinInterval = 10 * time.Millisecond
	cfg.TimeSyncMaxInterval = 100 * time.Millisecond
	cfg.TimeSyncRampUp = time.Second
	cfg.ChainSyncInterval = 10 * time.Millisecond
	cfg.TransactionSyncInterval = 10 * time.Millisecond
	cfg.BroadcastInterval = 10 * time.Millisecond
	cfg.PruneInterval = 100 * time.Millisecond
	cfg.CheckpointInterval = 100 * time.Millisecond
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *ScheduleConfig) ValidateBasic() error {
	if cfg.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if cfg.RefreshMinInterval <= 0 || cfg.RefreshMaxInterval < cfg.RefreshMinInterval {
		return errors.New("refresh intervals must be positive and ordered")
	}
	if cfg.TimeSyncMinInterval <= 0 || cfg.TimeSyncMaxInterval < cfg.TimeSyncMinInterval {
		return errors.New("time sync intervals must be positive and ordered")
	}
	if cfg.RefreshRampUp < 0 || cfg.TimeSyncRampUp < 0 {
		return errors.New("ramp up durations can't be negative")
	}
	if cfg.TimeSyncInitialRounds < 0 {
		return errors.New("time-sync-initial-rounds can't be negative")
	}
	for name, d := range map[string]time.Duration{
		"chain-sync-interval":       cfg.ChainSyncInterval,
		"transaction-sync-interval": cfg.TransactionSyncInterval,
		"broadcast-interval":        cfg.BroadcastInterval,
		"prune-interval":            cfg.PruneInterval,
		"checkpoint-interval":       cfg.CheckpointInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "nem",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// splitAndTrimEmpty slices s into all subslices separated by sep and returns
// a slice of the string s with all leading and trailing Unicode code points
// contained in cutset removed. Empty entries are dropped.
func splitAndTrimEmpty(s, sep, cutset string) []string {
	if s == "" {
		return []string{}
	}

	spl := strings.Split(s, sep)
	nonEmptyStrings := make([]string, 0, len(spl))
	for i := 0; i < len(spl); i++ {
		element := strings.Trim(spl[i], cutset)
		if element != "" {
			nonEmptyStrings = append(nonEmptyStrings, element)
		}
	}
	return nonEmptyStrings
}

//-----------------------------------------------------------------------------
// Moniker

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}

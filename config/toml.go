package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	tmos "github.com/NemProject/nem-sub016/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and returns an error if it fails.
func EnsureRoot(rootDir string) error {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return err
	}
	return tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm)
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
// This function is called by cmd/nem-peer/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	return writeFile(path, buffer.Bytes(), 0644)
}

// WriteDefaultConfigFileIfNone writes the default configuration unless a
// configuration file already exists under rootDir.
func WriteDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if !tmos.FileExists(configFilePath) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/nem/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.nem-peer" by default, but could be changed via $NEMHOME env variable
# or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb
# * goleveldb (github.com/syndtr/goleveldb)
#   - pure go
#   - stable
# * memdb
#   - nothing survives a restart, useful for tests
db-backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db-dir = "{{ js .BaseConfig.DBPath }}"

# Output level for logging: debug | info | error
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

# Path to the JSON file containing the private key identifying this node
node-key-file = "{{ js .BaseConfig.NodeKey }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###           Peer Configuration Options            ###
#######################################################
[peer]

# Endpoint other nodes use to reach this node
endpoint = "{{ .Peer.Endpoint }}"

# Address the node API listens on
laddr = "{{ .Peer.ListenAddress }}"

# Network the node belongs to. Nodes of other networks are incompatible.
network-id = {{ .Peer.NetworkID }}

# Comma separated list of seed nodes, formatted as
# "public-key@protocol://host:port"
pre-trusted-nodes = "{{ .Peer.PreTrustedNodes }}"

# Time to wait for a connection to another node
connect-timeout = "{{ .Peer.ConnectTimeout }}"

# Time to wait for a response once connected
read-timeout = "{{ .Peer.ReadTimeout }}"

# Maximum number of partners per chain synchronization round
chain-sync-nodes = {{ .Peer.ChainSyncNodes }}

# Maximum number of nodes refreshed per round
refresh-nodes = {{ .Peer.RefreshNodes }}

# Maximum number of partners per time synchronization round
time-sync-nodes = {{ .Peer.TimeSyncNodes }}

# Nodes below this importance are never time synchronization partners
min-importance = {{ .Peer.MinImportance }}

# Maximum number of newly discovered nodes probed per refresh round
max-new-nodes = {{ .Peer.MaxNewNodes }}

# How long the experiences reported by another node are kept
experience-retention = "{{ .Peer.ExperienceRetention }}"

# Requests per minute a single client may send to the node API.
# 0 - unlimited.
api-rate-limit = {{ .Peer.APIRateLimit }}

#######################################################
###          Trust Configuration Options            ###
#######################################################
[trust]

# Maximum number of iterations of the trust computation
max-iterations = {{ .Trust.MaxIterations }}

# Weight of the pre-trusted nodes in every iteration, in [0, 1]
alpha = {{ .Trust.Alpha }}

# The computation stops once the trust vector changes less than this
epsilon = {{ .Trust.Epsilon }}

# Nodes with fewer calls than this get a share of the trust
min-communication = {{ .Trust.MinCommunication }}

# Percentage of the trust given to nodes with little communication
low-com-weight = {{ .Trust.LowComWeight }}

# Spread the pre-trust over all nodes when no pre-trusted node is configured.
# Only meant for development networks.
allow-empty-pre-trust = {{ .Trust.AllowEmptyPreTrust }}

#######################################################
###        Time Sync Configuration Options          ###
#######################################################
[timesync]

# Run time synchronization rounds
enable = {{ .TimeSync.Enable }}

# Offsets smaller than this do not change the clock
adjustment-threshold = "{{ .TimeSync.AdjustmentThreshold }}"

# Height the configured importances are valid at
importance-height = {{ .TimeSync.ImportanceHeight }}

#######################################################
###           Sync Configuration Options            ###
#######################################################
[sync]

# Time stamp of the genesis block, RFC 3339
genesis-time = "{{ .Sync.GenesisTime }}"

# Maximum number of blocks that may be rolled back
max-rewrite = {{ .Sync.MaxRewrite }}

# Maximum number of hashes a node may return per request
max-hashes = {{ .Sync.MaxHashes }}

# How far a block time stamp may lie in the future
max-future-time = "{{ .Sync.MaxFutureTime }}"

# Maximum number of unconfirmed transactions kept in memory
tx-pool-capacity = {{ .Sync.TxPoolCapacity }}

#######################################################
###         Schedule Configuration Options          ###
#######################################################
[schedule]

# Number of tasks that may run at the same time
workers = {{ .Schedule.Workers }}

# Node refresh starts every refresh-min-interval and slows down linearly to
# refresh-max-interval over refresh-ramp-up
refresh-min-interval = "{{ .Schedule.RefreshMinInterval }}"
refresh-max-interval = "{{ .Schedule.RefreshMaxInterval }}"
refresh-ramp-up = "{{ .Schedule.RefreshRampUp }}"

# Time synchronization runs time-sync-initial-rounds times every
# time-sync-min-interval, then slows down linearly to time-sync-max-interval
# over time-sync-ramp-up
time-sync-initial-rounds = {{ .Schedule.TimeSyncInitialRounds }}
time-sync-min-interval = "{{ .Schedule.TimeSyncMinInterval }}"
time-sync-max-interval = "{{ .Schedule.TimeSyncMaxInterval }}"
time-sync-ramp-up = "{{ .Schedule.TimeSyncRampUp }}"

chain-sync-interval = "{{ .Schedule.ChainSyncInterval }}"
transaction-sync-interval = "{{ .Schedule.TransactionSyncInterval }}"
broadcast-interval = "{{ .Schedule.BroadcastInterval }}"
prune-interval = "{{ .Schedule.PruneInterval }}"
checkpoint-interval = "{{ .Schedule.CheckpointInterval }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# If you want to accept a larger number than the default, make sure
# you increase your OS limits.
# 0 - unlimited.
max-open-connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a unique test directory under dir with a default
// configuration file and returns the test configuration rooted there.
func ResetTestRoot(dir, testName string) (*Config, error) {
	// create a unique, concurrency-safe test directory under dir
	rootDir, err := os.MkdirTemp(dir, fmt.Sprintf("%s_", testName))
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}

	// Write default config file if missing.
	if err := WriteDefaultConfigFileIfNone(rootDir); err != nil {
		return nil, err
	}

	config := TestConfig().SetRoot(rootDir)
	config.Instrumentation.Namespace = fmt.Sprintf("%s_%s", testName, filepath.Base(rootDir))
	return config, nil
}

func writeFile(filePath string, contents []byte, mode os.FileMode) error {
	if err := os.WriteFile(filePath, contents, mode); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

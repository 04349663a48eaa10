package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/libs/log"
	tmos "github.com/NemProject/nem-sub016/libs/os"
	"github.com/NemProject/nem-sub016/libs/service"
	"github.com/NemProject/nem-sub016/node"
)

// Provider creates a node from the parsed configuration.
type Provider func(*config.Config, log.Logger) (service.Service, error)

// AddNodeFlags exposes some common configuration options on the command-line
// These are exposed for convenience of commands embedding a node
func AddNodeFlags(cmd *cobra.Command, conf *config.Config) {
	cmd.Flags().String("moniker", conf.Moniker, "node name")

	// peer flags
	cmd.Flags().String("peer.endpoint", conf.Peer.Endpoint, "endpoint other nodes use to reach this node")
	cmd.Flags().String("peer.laddr", conf.Peer.ListenAddress, "node API listen address")
	cmd.Flags().Int("peer.network-id", conf.Peer.NetworkID, "network the node belongs to")
	cmd.Flags().String("peer.pre-trusted-nodes", conf.Peer.PreTrustedNodes,
		"comma-delimited public-key@protocol://host:port seed nodes")

	// time sync flags
	cmd.Flags().Bool("timesync.enable", conf.TimeSync.Enable, "run time synchronization rounds")

	// instrumentation flags
	cmd.Flags().Bool("instrumentation.prometheus", conf.Instrumentation.Prometheus, "serve Prometheus metrics")

	// db flags
	cmd.Flags().String("db-backend", conf.DBBackend, "database backend: goleveldb | cleveldb | boltdb | rocksdb | badgerdb | memdb")
	cmd.Flags().String("db-dir", conf.DBPath, "database directory")
}

// NewRunNodeCmd returns the command that allows the CLI to start a node.
func NewRunNodeCmd(nodeProvider Provider, conf *config.Config, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the node",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := nodeProvider(conf, *logger)
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			if err := n.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start node: %w", err)
			}

			(*logger).Info("started node", "node", n.String())

			// Stop upon receiving SIGTERM or CTRL-C.
			tmos.TrapSignal(*logger, func() {
				if n.IsRunning() {
					if err := n.Stop(); err != nil {
						(*logger).Error("failed to stop node", "err", err)
					}
				}
			})

			n.Wait()
			return nil
		},
	}

	AddNodeFlags(cmd, conf)
	return cmd
}

// DefaultProvider builds the production node.
func DefaultProvider(conf *config.Config, logger log.Logger) (service.Service, error) {
	return node.New(conf, logger)
}

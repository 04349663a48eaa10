package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/types"
)

// MakeShowNodeIDCommand returns the command printing the public key of the
// node together with its endpoint, in the form accepted by
// peer.pre-trusted-nodes.
func MakeShowNodeIDCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show-node-id",
		Short: "Show this node's public key and endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeKey, err := types.LoadNodeKey(conf.NodeKeyFile())
			if err != nil {
				return err
			}
			identity, err := nodeKey.Identity(conf.Moniker)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\n", hex.EncodeToString(identity.PublicKey()), conf.Peer.Endpoint)
			return nil
		},
	}
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NemProject/nem-sub016/version"
)

var verbose bool

// VersionCmd prints the node version.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}

		values, err := json.MarshalIndent(struct {
			Version     string `json:"version"`
			Application string `json:"application"`
			Platform    string `json:"platform"`
			GitCommit   string `json:"git_commit,omitempty"`
		}{
			Version:     version.Version,
			Application: version.Application,
			Platform:    version.Platform,
			GitCommit:   version.GitCommit,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show application and platform")
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/libs/log"
	tmos "github.com/NemProject/nem-sub016/libs/os"
)

// MakeResetCommand returns the command removing the stored network state.
// The configuration and the node key are kept.
func MakeResetCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "unsafe-reset-all",
		Short: "Remove the stored nodes and experiences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetState(conf.DBDir(), *logger)
		},
	}
}

func resetState(dbDir string, logger log.Logger) error {
	if !tmos.FileExists(dbDir) {
		logger.Info("Nothing to remove", "dir", dbDir)
		return nil
	}
	if err := os.RemoveAll(dbDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dbDir, err)
	}
	logger.Info("Removed all network state", "dir", dbDir)
	return tmos.EnsureDir(dbDir, 0700)
}

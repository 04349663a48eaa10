package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/libs/log"
	tmos "github.com/NemProject/nem-sub016/libs/os"
	"github.com/NemProject/nem-sub016/types"
)

// MakeInitFilesCommand returns the command creating the configuration file
// and the node key under the home directory.
func MakeInitFilesCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the node configuration and key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initFiles(conf, *logger)
		},
	}
}

func initFiles(conf *config.Config, logger log.Logger) error {
	if err := config.EnsureRoot(conf.RootDir); err != nil {
		return err
	}

	configFile := filepath.Join(conf.RootDir, "config", "config.toml")
	if tmos.FileExists(configFile) {
		logger.Info("Found config file", "path", configFile)
	} else {
		if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		logger.Info("Generated config file", "path", configFile)
	}

	nodeKeyFile := conf.NodeKeyFile()
	if tmos.FileExists(nodeKeyFile) {
		logger.Info("Found node key", "path", nodeKeyFile)
		return nil
	}
	if _, err := types.LoadOrGenNodeKey(nodeKeyFile); err != nil {
		return err
	}
	logger.Info("Generated node key", "path", nodeKeyFile)
	return nil
}

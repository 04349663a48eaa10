package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/libs/cli"
	"github.com/NemProject/nem-sub016/libs/log"
)

// ParseConfig retrieves the default environment configuration, sets up the
// node root and validates the result.
func ParseConfig(conf *config.Config) (*config.Config, error) {
	if err := viper.Unmarshal(conf); err != nil {
		return nil, err
	}

	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// RootCommand constructs the root command-line entry point. The logger is
// replaced according to the parsed configuration before any subcommand runs.
func RootCommand(conf *config.Config, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nem-peer",
		Short: "Trust-based peer selection and synchronization node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == VersionCmd.Name() {
				return nil
			}

			pconf, err := ParseConfig(conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			if err := config.EnsureRoot(conf.RootDir); err != nil {
				return err
			}

			l, err := log.NewDefaultLogger(conf.LogFormat, conf.LogLevel)
			if err != nil {
				return err
			}
			*logger = l
			return nil
		},
	}
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format: plain | json")
	return cli.PrepareBaseCmd(cmd, "NEM", os.ExpandEnv(filepath.Join("$HOME", config.DefaultNemPeerDir)))
}

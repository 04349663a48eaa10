package main

import (
	"context"
	"os"

	"github.com/NemProject/nem-sub016/cmd/nem-peer/commands"
	"github.com/NemProject/nem-sub016/config"
	"github.com/NemProject/nem-sub016/libs/log"
)

func main() {
	ctx := context.Background()

	conf := config.DefaultConfig()
	logger := log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo)

	rootCmd := commands.RootCommand(conf, &logger)
	rootCmd.AddCommand(
		commands.MakeInitFilesCommand(conf, &logger),
		commands.MakeResetCommand(conf, &logger),
		commands.MakeShowNodeIDCommand(conf),
		commands.VersionCmd,
		commands.NewRunNodeCmd(commands.DefaultProvider, conf, &logger),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

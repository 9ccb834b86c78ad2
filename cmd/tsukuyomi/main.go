package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yonatandev1/tsukuyomi/log"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", log.ERROR, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tsukuyomi",
		Short: "Gateway client with a live entity cache",
		Long: `Tsukuyomi keeps a gateway session alive, mirrors guilds, channels,
members and messages in memory and logs every event it routes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tsukuyomi.yaml", "path to the config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newGatewayCmd(&configPath),
		newInitCmd(&configPath),
		newVersionCmd(),
	)

	return rootCmd
}

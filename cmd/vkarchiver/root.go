package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "vkarchiver",
	Short: "Archive media from VK users, groups and chats",
	Long: `vkarchiver downloads photos, wall attachments, documents, stories and
video metadata from VK communities and profiles into a local archive.

Runs are resumable and idempotent: pagination cursors and the set of
already-downloaded items persist across invocations, so an interrupted
run picks up where it left off.`,
	Version: version,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.vkarchiver.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

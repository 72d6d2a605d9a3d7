// Package cli implements the avremote command-line interface using Cobra.
// Every subcommand except serve talks to a running daemon over its HTTP
// API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "avremote",
	Short: "Control Bluetooth media devices over AVRCP",
	Long: `AVRemote manages AVRCP sessions with nearby Bluetooth devices.
The daemon discovers remote-control peers, keeps their control channels
alive, and exposes them over a local HTTP API; the other subcommands
drive connected peers through that API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "",
		"daemon address as host:port (overrides config)")
}

var flagAddr string

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

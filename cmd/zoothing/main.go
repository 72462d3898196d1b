// Zoothing is the ZooThing WiFi connection manager.
//
// It keeps a device joined to its configured station network, reconnects
// with a bounded number of retries, and falls back to a timed access point
// with a configuration portal when the network cannot be reached. The same
// binary manages the stored identity and pushes settings to other devices'
// portals.
//
// Usage:
//
//	zoothing [command] [flags]
//
// See 'zoothing --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "zoothing",
	Short: "ZooThing WiFi connection manager",
	Long: `A WiFi connection lifecycle manager for small devices.

The run command joins the configured station network, retries with a flat
backoff when it drops, and falls back to an access point with a configuration
portal when the network stays unreachable. The identity, push and scan
commands manage the stored settings and configure devices over their portal.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zoothing %s\n", version.Full())
	},
}

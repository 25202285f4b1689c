// Steamdisc discovers Steamist steam-bath controllers on the local
// network.
//
// Controllers announce themselves in reply to a UDP broadcast probe on
// port 30303. Steamdisc sends the probe, collects announcements, and can
// run one-shot scans, print a continuous event stream, show a live watch
// screen, or publish results over HTTP/WebSocket for other tools.
//
// Usage:
//
//	steamdisc [command] [flags]
//
// Running without arguments performs a one-shot scan.
// See 'steamdisc --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stokeworth/steamdisc/internal/logging"
	"github.com/stokeworth/steamdisc/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "steamdisc",
	Short: "Steamist Device Discovery Utility",
	Long: `Discover Steamist steam-bath controllers on the local network.

Controllers answer a UDP broadcast probe on port 30303 with a short
plaintext announcement. Steamdisc broadcasts the probe, deduplicates
the replies and reports every controller it hears.

If no command is specified, a one-shot scan runs with the default
timeout.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run a scan when no subcommand provided
		return runScan(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("steamdisc %s (commit: %s)\n", version.Version, version.Commit)
	},
}

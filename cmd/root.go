// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "antsdrd",
	Short: "ANTSDR DMA streaming daemon",
	Long: `antsdrd streams radar pulse frames from an ANTSDR capture device to a
UDP receiver. It extracts FPGA frames from raw DMA transfers, detects
dropped frames via the hardware counter, and repacketizes payloads with
fragmentation and per-fragment checksums.

Run the daemon with "antsdrd run", then control it over the Unix domain
socket with the client subcommands (start, stop, status, stats, mode, dest).`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/antsdrd.sock",
		"daemon socket path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(destCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(shutdownCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

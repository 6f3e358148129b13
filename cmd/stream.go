package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/madlink306/antsdr-streamd/internal/command"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start streaming",
	Run: func(cmd *cobra.Command, args []string) {
		callDaemon("stream_start", nil)
		fmt.Println("streaming started")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop streaming",
	Run: func(cmd *cobra.Command, args []string) {
		callDaemon("stream_stop", nil)
		fmt.Println("streaming stopped")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show streaming status",
	Run: func(cmd *cobra.Command, args []string) {
		printJSON(callDaemon("stream_status", nil))
	},
}

var statsResetFlag bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics",
	Long: `Query the daemon for runtime statistics.

Shows: transfer and byte counts, frame extraction results, detected
frame gaps, per-stage drop counts and pipeline depths.`,
	Run: func(cmd *cobra.Command, args []string) {
		printJSON(callDaemon("get_stats", nil))
		if statsResetFlag {
			callDaemon("reset_stats", nil)
			fmt.Println("statistics reset")
		}
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode <short|long>",
	Short: "Set the pulse mode",
	Long: `Set the radar pulse mode. Changing the mode while streaming stops the
current session, applies the mode and starts a new session.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callDaemon("set_pulse_mode", command.SetPulseModeParams{Mode: args[0]})
		fmt.Printf("pulse mode set to %s\n", args[0])
	},
}

var destCmd = &cobra.Command{
	Use:   "dest <host:port>",
	Short: "Set the UDP destination",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		callDaemon("set_destination", command.SetDestinationParams{Destination: args[0]})
		fmt.Printf("destination set to %s\n", args[0])
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Shut down the daemon",
	Run: func(cmd *cobra.Command, args []string) {
		callDaemon("daemon_shutdown", nil)
		fmt.Println("daemon shutting down")
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsResetFlag, "reset", false,
		"reset statistics after printing them")
}

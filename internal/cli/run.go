package cli

import (
	"github.com/spf13/cobra"

	"fraud-monitor/internal/app"
)

var (
	runCapacity int
	runQuiet    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the snapshot, then follow the live record stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), app.RunOptions{
			Capacity: runCapacity,
			Quiet:    runQuiet,
		})
	},
}

func init() {
	runCmd.Flags().IntVar(&runCapacity, "capacity", 0, "Visible record limit (defaults to monitor.capacity)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Do not print the live feed to stdout")
}

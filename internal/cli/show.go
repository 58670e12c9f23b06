package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fraud-monitor/internal/app"
)

var (
	showLimit  int
	showSearch string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current snapshot as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Search: showSearch,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Number of records to display (defaults to monitor.capacity)")
	showCmd.Flags().StringVar(&showSearch, "search", "", "Only show records whose id or amount contains this text")
}

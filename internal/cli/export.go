package cli

import (
	"github.com/spf13/cobra"

	"fraud-monitor/internal/app"
)

var (
	exportPNGPath string
	exportCSVPath string
	exportSearch  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the snapshot view as CSV and/or a PNG risk chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			CSVPath: exportCSVPath,
			PNGPath: exportPNGPath,
			Search:  exportSearch,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart (defaults to export.png_path)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data (defaults to export.csv_path)")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "Only export records whose id or amount contains this text")
}

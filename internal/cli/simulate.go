package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateAmount float64
	simulateScore  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic high-risk alert through the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAmount <= 0 {
			return errors.New("--amount must be greater than 0")
		}
		if simulateScore < 0 || simulateScore > 1 {
			return errors.New("--score must be between 0 and 1")
		}
		return getApp().SimulateAlert(cmd.Context(), decimal.NewFromFloat(simulateAmount), simulateScore)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 10000, "Transaction amount shown in the alert")
	simulateCmd.Flags().Float64Var(&simulateScore, "score", 0.99, "Fraud score shown in the alert")
}

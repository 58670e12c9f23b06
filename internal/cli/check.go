package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fraud-monitor/internal/app"
)

var (
	checkAmount    string
	checkType      int
	checkOldOrigin string
	checkNewOrigin string
	checkOldDest   string
	checkNewDest   string
	checkIP        string
	checkEmail     string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Submit a transaction for fraud evaluation",
	Long:  "Submit a transaction for fraud evaluation. The evaluated record shows up on the live stream, not in this command's output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkAmount == "" {
			return errors.New("--amount is required")
		}
		amount, err := decimal.NewFromString(checkAmount)
		if err != nil {
			return fmt.Errorf("invalid --amount value: %w", err)
		}

		opts := app.CheckOptions{
			Amount: amount,
			Type:   checkType,
			IP:     checkIP,
			Email:  checkEmail,
		}
		for _, f := range []struct {
			flag  string
			value string
			dst   **decimal.Decimal
		}{
			{"old-origin", checkOldOrigin, &opts.OldBalanceOrigin},
			{"new-origin", checkNewOrigin, &opts.NewBalanceOrigin},
			{"old-dest", checkOldDest, &opts.OldBalanceDest},
			{"new-dest", checkNewDest, &opts.NewBalanceDest},
		} {
			if f.value == "" {
				continue
			}
			d, err := decimal.NewFromString(f.value)
			if err != nil {
				return fmt.Errorf("invalid --%s value: %w", f.flag, err)
			}
			*f.dst = &d
		}

		_, err = getApp().Check(cmd.Context(), opts)
		return err
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAmount, "amount", "", "Transaction amount")
	checkCmd.Flags().IntVar(&checkType, "type", 1, "Transaction type code")
	checkCmd.Flags().StringVar(&checkOldOrigin, "old-origin", "", "Origin balance before the transaction (default 1000)")
	checkCmd.Flags().StringVar(&checkNewOrigin, "new-origin", "", "Origin balance after the transaction (default old-origin minus amount)")
	checkCmd.Flags().StringVar(&checkOldDest, "old-dest", "", "Destination balance before the transaction (default 0)")
	checkCmd.Flags().StringVar(&checkNewDest, "new-dest", "", "Destination balance after the transaction (default old-dest plus amount)")
	checkCmd.Flags().StringVar(&checkIP, "ip", "", "Client IP address (default 1.2.3.4)")
	checkCmd.Flags().StringVar(&checkEmail, "email", "", "Client email (default test@demo.com)")
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict TICKER",
		Short: "Predict the 1-2 week price range for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ticker := strings.ToUpper(strings.TrimSpace(args[0]))
			pred, err := a.engine.PredictRange(cmd.Context(), ticker)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pred)
			}

			fmt.Printf("%s  price %.2f  ATR %.2f  score %+.2f\n", pred.Ticker, pred.CurrentPrice, pred.ATR, pred.RegimeScore)
			fmt.Printf("  target  %.2f\n", pred.TargetMid)
			fmt.Printf("  range   %.2f - %.2f  (width %.2f, %.1f%%)\n",
				pred.Low, pred.High, pred.RangeWidthAbs, pred.RangeWidthPct*100)
			fmt.Printf("  bullish %.0f%%\n", pred.BullishProbability*100)
			if pred.HasIV {
				fmt.Printf("  iv range %.2f - %.2f\n", pred.IVLow, pred.IVHigh)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

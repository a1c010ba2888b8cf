package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateBuy  float64
	simulateSell float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-price",
	Short: "模拟一次报价并走完整流水线",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateBuy <= 0 || simulateSell <= 0 {
			return errors.New("--buy 与 --sell 必须大于 0")
		}

		buy := decimal.NewFromFloat(simulateBuy)
		sell := decimal.NewFromFloat(simulateSell)
		return getApp().SimulatePrice(cmd.Context(), buy, sell)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateBuy, "buy", 0, "模拟买入价 (Toman/Mesqal)")
	simulateCmd.Flags().Float64Var(&simulateSell, "sell", 0, "模拟卖出价 (Toman/Mesqal)")
}

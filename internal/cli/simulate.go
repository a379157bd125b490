package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"platform-pulse/internal/app"
)

var (
	simulateWager      float64
	simulateMultiplier float64
	simulateGame       string
	simulateJackpot    float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-play",
	Short: "模拟一条结算记录并走完整条通知管线",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateWager <= 0 {
			return errors.New("--wager 必须大于 0")
		}

		opts := app.SimulateOptions{
			Wager:      simulateWager,
			Multiplier: simulateMultiplier,
			GameName:   simulateGame,
			Jackpot:    simulateJackpot,
		}
		return getApp().SimulatePlay(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateWager, "wager", 0, "下注金额 (整币单位)")
	simulateCmd.Flags().Float64Var(&simulateMultiplier, "multiplier", 0, "结算倍率 (0 表示输)")
	simulateCmd.Flags().StringVar(&simulateGame, "game", "", "游戏名称")
	simulateCmd.Flags().Float64Var(&simulateJackpot, "jackpot", 0, "额外奖池派彩 (整币单位)")
}

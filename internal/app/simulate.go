package app

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"platform-pulse/internal/plays"
	"platform-pulse/internal/service"
)

// SimulatePlay 构造一条合成结算事件并走完整条通知管线。
func (a *App) SimulatePlay(ctx context.Context, opts SimulateOptions) error {
	if opts.Wager <= 0 {
		return errors.New("wager must be greater than zero")
	}
	if opts.Multiplier < 0 {
		return errors.New("multiplier cannot be negative")
	}

	queue := a.newQueue(nil)
	relay := a.newRelay()

	svc := service.New(a.Config, nil, nil, queue, nil, nil, nil, nil, nil, relay, nil, a.Logger)

	event := a.syntheticEvent(opts)
	svc.HandleSettlement(ctx, event)

	for _, note := range queue.Snapshot() {
		fmt.Fprintln(os.Stdout, note.Message)
	}
	return nil
}

func (a *App) syntheticEvent(opts SimulateOptions) plays.SettlementEvent {
	decimals := a.Config.Plays.TokenDecimals

	var sig solana.Signature
	binary.BigEndian.PutUint64(sig[:8], uint64(time.Now().UnixNano()))
	copy(sig[8:], "pulsewatch-simulated-play")

	var user solana.PublicKey
	copy(user[:], "pulsewatch.simulated.user")

	wagerUnits := decimal.NewFromFloat(opts.Wager).Shift(decimals).IntPart()
	betEntry := decimal.NewFromFloat(opts.Multiplier).Mul(decimal.NewFromInt(plays.BPSPerWhole)).IntPart()
	jackpotUnits := decimal.NewFromFloat(opts.Jackpot).Shift(decimals).IntPart()

	game := opts.GameName
	if game == "" {
		game = "Simulated Game"
	}

	return plays.SettlementEvent{
		Signature:     sig,
		User:          user,
		Wager:         uint64(wagerUnits),
		Bet:           []uint64{uint64(betEntry)},
		ResultIndex:   0,
		JackpotPayout: uint64(jackpotUnits),
		GameName:      game,
		Time:          time.Now().UTC(),
	}
}

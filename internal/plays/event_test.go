package plays

import (
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

func testSignature(b byte) solana.Signature {
	var sig solana.Signature
	sig[0] = b
	return sig
}

func testUser() solana.PublicKey {
	var pk solana.PublicKey
	pk[31] = 0x7f
	return pk
}

func validEvent() SettlementEvent {
	return SettlementEvent{
		Signature:   testSignature(1),
		User:        testUser(),
		Wager:       1_000_000_000,
		Bet:         []uint64{20_000},
		ResultIndex: 0,
		GameName:    "Dice",
		Time:        time.Unix(1_700_000_000, 0),
	}
}

func TestValidateRejectsMalformedEvents(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SettlementEvent)
	}{
		{"missing signature", func(e *SettlementEvent) { e.Signature = solana.Signature{} }},
		{"missing user", func(e *SettlementEvent) { e.User = solana.PublicKey{} }},
		{"empty bet", func(e *SettlementEvent) { e.Bet = nil }},
		{"negative index", func(e *SettlementEvent) { e.ResultIndex = -1 }},
		{"index out of range", func(e *SettlementEvent) { e.ResultIndex = 1 }},
		{"zero wager", func(e *SettlementEvent) { e.Wager = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := validEvent()
			tc.mutate(&event)
			if err := event.Validate(); err == nil {
				t.Fatal("畸形事件应校验失败")
			}
		})
	}

	if err := validEvent().Validate(); err != nil {
		t.Fatalf("合法事件不应报错: %v", err)
	}
}

func TestProfitMath(t *testing.T) {
	// 2x 中奖: 派彩 2 * wager, 利润 = wager。
	event := validEvent()
	if !event.Multiplier().Equal(decimal.NewFromInt(2)) {
		t.Fatalf("bet 20000 应为 2x, 实际 %s", event.Multiplier())
	}
	if !event.Profit().Equal(decimal.NewFromInt(1_000_000_000)) {
		t.Fatalf("利润应为 1e9 基础单位, 实际 %s", event.Profit())
	}
	if !event.ScaledProfit(9).Equal(decimal.NewFromInt(1)) {
		t.Fatalf("按 9 位小数换算应为 1, 实际 %s", event.ScaledProfit(9))
	}

	// 输局: bet 条目为 0, 利润 = -wager。
	loss := validEvent()
	loss.Bet = []uint64{0}
	if !loss.Profit().Equal(decimal.NewFromInt(-1_000_000_000)) {
		t.Fatalf("输局利润应为 -wager, 实际 %s", loss.Profit())
	}

	// 非整数倍率: 15000 bps = 1.5x。
	half := validEvent()
	half.Bet = []uint64{15_000}
	if !half.ScaledProfit(9).Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("1.5x 利润应为 0.5, 实际 %s", half.ScaledProfit(9))
	}
}

func TestFormatMessage(t *testing.T) {
	event := validEvent()
	message, win := FormatMessage(event, 9, "SOL")
	if !win {
		t.Fatal("正利润应判定为赢")
	}
	if !strings.Contains(message, "WON") || !strings.Contains(message, "SOL") || !strings.Contains(message, "Dice") {
		t.Fatalf("赢局消息缺少关键字段: %s", message)
	}
	if !strings.Contains(message, event.ShortUser()) {
		t.Fatalf("消息应包含截断地址: %s", message)
	}

	loss := validEvent()
	loss.Bet = []uint64{0}
	loss.GameName = ""
	message, win = FormatMessage(loss, 9, "SOL")
	if win {
		t.Fatal("负利润应判定为输")
	}
	if !strings.Contains(message, "LOST") || !strings.Contains(message, "Unknown Game") {
		t.Fatalf("输局消息不正确: %s", message)
	}
	if strings.Contains(message, "-") {
		t.Fatalf("输局金额应取绝对值: %s", message)
	}
}

func TestShortUser(t *testing.T) {
	user := testUser()
	short := SettlementEvent{User: user}.ShortUser()
	encoded := user.String()
	if short != encoded[len(encoded)-5:] {
		t.Fatalf("应取 base58 末 5 位: %s", short)
	}
}

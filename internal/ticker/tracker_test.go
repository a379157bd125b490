package ticker

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"platform-pulse/internal/feed"
)

func testMint(b byte) solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = b
	return pk
}

func newTestTracker(opts Options) (*Tracker, *time.Time) {
	tr := NewTracker(opts, nil, zerolog.Nop())
	current := time.Unix(1_700_000_000, 0)
	tr.now = func() time.Time { return current }
	return tr, &current
}

func quote(mint solana.PublicKey, symbol string, price int64) feed.Quote {
	return feed.Quote{Mint: mint, Symbol: symbol, Price: decimal.NewFromInt(price)}
}

func TestTrackerFirstObservationHasNoTransition(t *testing.T) {
	tr, _ := newTestTracker(Options{})

	transitions := tr.ObservePoll([]feed.Quote{quote(testMint(1), "BONK", 10)})
	if len(transitions) != 0 {
		t.Fatalf("首次观察不应产生变化记录: %+v", transitions)
	}

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("应跟踪 1 个币种, 实际 %d", len(entries))
	}
	if !entries[0].PercentChange.IsZero() {
		t.Fatalf("prev == cur 时涨跌幅应为 0, 实际 %s", entries[0].PercentChange)
	}
}

func TestTrackerTransitionSequence(t *testing.T) {
	tr, current := newTestTracker(Options{})
	mint := testMint(1)

	// 价格序列 10, 10, 12, 12, 8: 只有真正变化的样本产生记录。
	prices := []int64{10, 10, 12, 12, 8}
	var transitions []Transition
	for _, p := range prices {
		*current = current.Add(30 * time.Second)
		transitions = append(transitions, tr.ObservePoll([]feed.Quote{quote(mint, "BONK", p)})...)
	}

	if len(transitions) != 2 {
		t.Fatalf("期望 2 次变化, 实际 %d", len(transitions))
	}

	first := transitions[0]
	if !first.Price.Equal(decimal.NewFromInt(12)) || !first.PreviousPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("第一次变化应为 10 -> 12: %+v", first)
	}
	if !first.PercentChange.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("10 -> 12 涨幅应为 20%%, 实际 %s", first.PercentChange)
	}

	second := transitions[1]
	if !second.Price.Equal(decimal.NewFromInt(8)) || !second.PreviousPrice.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("第二次变化应为 12 -> 8: %+v", second)
	}
	expected := decimal.NewFromInt(-4).Div(decimal.NewFromInt(12)).Mul(decimal.NewFromInt(100))
	if !second.PercentChange.Equal(expected) {
		t.Fatalf("12 -> 8 跌幅应为 %s, 实际 %s", expected, second.PercentChange)
	}
}

func TestTrackerChangedAtNotResetByIdenticalQuotes(t *testing.T) {
	tr, current := newTestTracker(Options{RecentWindow: 5 * time.Minute})
	mint := testMint(1)

	tr.ObservePoll([]feed.Quote{quote(mint, "BONK", 10)})
	*current = current.Add(time.Minute)
	tr.ObservePoll([]feed.Quote{quote(mint, "BONK", 12)})
	changed := *current

	// 相同报价重复出现不应刷新 changedAt。
	for i := 0; i < 10; i++ {
		*current = current.Add(time.Minute)
		tr.ObservePoll([]feed.Quote{quote(mint, "BONK", 12)})
	}

	entries := tr.Entries()
	if !entries[0].ChangedAt.Equal(changed) {
		t.Fatalf("changedAt 应保持在最后一次实际变化: %v != %v", entries[0].ChangedAt, changed)
	}
	if entries[0].RecentChange {
		t.Fatal("超出窗口后不应再标记为近期变化")
	}
}

func TestTrackerEntryFlags(t *testing.T) {
	tr, current := newTestTracker(Options{RecentWindow: 5 * time.Minute, SignificantPct: 2})
	mint := testMint(1)

	tr.ObservePoll([]feed.Quote{quote(mint, "BONK", 100)})
	*current = current.Add(time.Minute)
	tr.ObservePoll([]feed.Quote{quote(mint, "BONK", 103)})

	entries := tr.Entries()
	e := entries[0]
	if !e.Increasing {
		t.Fatal("上涨应标记 Increasing")
	}
	if !e.Significant {
		t.Fatal("3% 超过 2% 阈值, 应标记 Significant")
	}
	if !e.RecentChange {
		t.Fatal("窗口内应标记 RecentChange")
	}
}

func TestTrackerZeroPreviousYieldsZeroChange(t *testing.T) {
	tr, _ := newTestTracker(Options{})
	mint := testMint(1)

	tr.ObservePoll([]feed.Quote{{Mint: mint, Symbol: "NEW", Price: decimal.Zero}})
	tr.ObservePoll([]feed.Quote{quote(mint, "NEW", 5)})

	entries := tr.Entries()
	if !entries[0].PercentChange.IsZero() {
		t.Fatalf("前值为 0 时涨跌幅应为 0, 实际 %s", entries[0].PercentChange)
	}
}

func TestTrackerEvictsUnseenInstruments(t *testing.T) {
	tr, _ := newTestTracker(Options{EvictAfterPolls: 3})
	kept := testMint(1)
	gone := testMint(2)

	tr.ObservePoll([]feed.Quote{quote(kept, "KEEP", 1), quote(gone, "GONE", 1)})

	for i := 0; i < 2; i++ {
		tr.ObservePoll([]feed.Quote{quote(kept, "KEEP", 1)})
	}
	if tr.Len() != 2 {
		t.Fatalf("未达到阈值前不应驱逐, 实际 %d", tr.Len())
	}

	tr.ObservePoll([]feed.Quote{quote(kept, "KEEP", 1)})
	if tr.Len() != 1 {
		t.Fatalf("连续缺席达到阈值应被驱逐, 实际 %d", tr.Len())
	}

	entries := tr.Entries()
	if entries[0].Mint != kept {
		t.Fatal("被驱逐的应是缺席的币种")
	}
}

func TestTrackerReappearanceResetsUnseenCount(t *testing.T) {
	tr, _ := newTestTracker(Options{EvictAfterPolls: 3})
	a := testMint(1)
	b := testMint(2)

	tr.ObservePoll([]feed.Quote{quote(a, "A", 1), quote(b, "B", 1)})
	tr.ObservePoll([]feed.Quote{quote(a, "A", 1)})
	tr.ObservePoll([]feed.Quote{quote(a, "A", 1), quote(b, "B", 1)})
	tr.ObservePoll([]feed.Quote{quote(a, "A", 1)})
	tr.ObservePoll([]feed.Quote{quote(a, "A", 1)})

	if tr.Len() != 2 {
		t.Fatalf("重新出现应重置缺席计数, 实际 %d", tr.Len())
	}
}

func TestTrackerEntriesSortedBySymbolThenMint(t *testing.T) {
	tr, _ := newTestTracker(Options{})

	tr.ObservePoll([]feed.Quote{
		quote(testMint(3), "ZZZ", 1),
		quote(testMint(2), "AAA", 1),
		quote(testMint(1), "AAA", 1),
	})

	entries := tr.Entries()
	if entries[0].Symbol != "AAA" || entries[2].Symbol != "ZZZ" {
		t.Fatalf("应按符号排序: %+v", entries)
	}
	if entries[0].Mint.String() > entries[1].Mint.String() {
		t.Fatal("同符号应按 mint 排序")
	}
}

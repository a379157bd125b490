package plays

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func payloadFor(sigByte byte, game string) settlementPayload {
	return settlementPayload{
		Signature:   testSignature(sigByte).String(),
		User:        testUser().String(),
		Wager:       1_000_000_000,
		Bet:         []uint64{20_000},
		ResultIndex: 0,
		GameName:    game,
		Time:        1_700_000_000_000,
	}
}

func drain(s *HTTPStream) []SettlementEvent {
	var out []SettlementEvent
	for {
		select {
		case ev := <-s.out:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestStreamReplaysOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 接口按最新在前返回。
		_ = json.NewEncoder(w).Encode([]settlementPayload{
			payloadFor(3, "third"),
			payloadFor(2, "second"),
			payloadFor(1, "first"),
		})
	}))
	defer srv.Close()

	s := NewHTTPStream(HTTPStreamOptions{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	s.poll(context.Background())

	events := drain(s)
	if len(events) != 3 {
		t.Fatalf("应投递 3 条事件, 实际 %d", len(events))
	}
	if events[0].GameName != "first" || events[2].GameName != "third" {
		t.Fatalf("应按结算顺序投递: %+v", events)
	}
	if events[0].Time.UnixMilli() != 1_700_000_000_000 {
		t.Fatalf("时间戳应按毫秒解析: %v", events[0].Time)
	}
}

func TestStreamStopsAtLastSeenSignature(t *testing.T) {
	var phase atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if phase.Load() == 0 {
			_ = json.NewEncoder(w).Encode([]settlementPayload{
				payloadFor(2, "b"),
				payloadFor(1, "a"),
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]settlementPayload{
			payloadFor(3, "c"),
			payloadFor(2, "b"),
			payloadFor(1, "a"),
		})
	}))
	defer srv.Close()

	s := NewHTTPStream(HTTPStreamOptions{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	s.poll(context.Background())
	if got := len(drain(s)); got != 2 {
		t.Fatalf("首次轮询应投递 2 条, 实际 %d", got)
	}

	phase.Store(1)
	s.poll(context.Background())

	events := drain(s)
	if len(events) != 1 {
		t.Fatalf("第二次轮询只应投递新增事件, 实际 %d", len(events))
	}
	if events[0].GameName != "c" {
		t.Fatalf("新增事件不正确: %+v", events[0])
	}
}

func TestStreamSkipsUndecodableEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		good := payloadFor(1, "good")
		bad := payloadFor(2, "bad")
		bad.User = "not-base58!"
		_ = json.NewEncoder(w).Encode([]settlementPayload{bad, good})
	}))
	defer srv.Close()

	s := NewHTTPStream(HTTPStreamOptions{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	s.poll(context.Background())

	events := drain(s)
	if len(events) != 1 || events[0].GameName != "good" {
		t.Fatalf("无法解码的条目应被跳过: %+v", events)
	}
}

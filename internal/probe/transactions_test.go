package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

func testCreator() solana.PublicKey {
	var pk solana.PublicKey
	pk[0] = 0x42
	return pk
}

func TestCheckTransactionsMissingCreator(t *testing.T) {
	tx := NewTransactions(TransactionsOptions{BaseURL: "http://localhost"}, nil, noopLogger())
	if _, ok := tx.CheckTransactions(context.Background()); ok {
		t.Fatal("未配置地址时应跳过检查")
	}
}

func TestCheckTransactionsSecured(t *testing.T) {
	creator := testCreator()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, creator.String()) {
			t.Fatalf("路径应包含创建者地址, 实际 %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "1" {
			t.Fatalf("limit 应为 1, 实际 %s", r.URL.Query().Get("limit"))
		}
		if r.URL.Query().Get("api-key") != "secret" {
			t.Fatal("应携带 api-key")
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"signature": "abc", "timestamp": 1_700_000_000},
		})
	}))
	defer srv.Close()

	tx := NewTransactions(TransactionsOptions{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Creator: creator,
		Timeout: time.Second,
	}, nil, noopLogger())

	snap, ok := tx.CheckTransactions(context.Background())
	if !ok {
		t.Fatal("配置完整时应执行检查")
	}
	if snap.Status != TxSecured {
		t.Fatalf("有交易记录应为 Secured, 实际 %s", snap.Status)
	}
	if snap.LastTransaction == nil || snap.LastTransaction.Unix() != 1_700_000_000 {
		t.Fatalf("最后交易时间不正确: %v", snap.LastTransaction)
	}
}

func TestCheckTransactionsEmptyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	tx := NewTransactions(TransactionsOptions{BaseURL: srv.URL, Creator: testCreator(), Timeout: time.Second}, nil, noopLogger())

	snap, ok := tx.CheckTransactions(context.Background())
	if !ok {
		t.Fatal("空历史仍算检查成功")
	}
	if snap.Status != TxUnsecured || snap.LastTransaction != nil {
		t.Fatalf("空历史应为 Unsecured 且无时间: %+v", snap)
	}
}

func TestCheckTransactionsFetchErrorDegradesToUnsecured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tx := NewTransactions(TransactionsOptions{BaseURL: srv.URL, Creator: testCreator(), Timeout: time.Second}, nil, noopLogger())

	snap, ok := tx.CheckTransactions(context.Background())
	if !ok {
		t.Fatal("请求失败也应更新状态")
	}
	if snap.Status != TxUnsecured {
		t.Fatalf("请求失败应降级为 Unsecured, 实际 %s", snap.Status)
	}
}

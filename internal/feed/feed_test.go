package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestFetchPricesMissingURL(t *testing.T) {
	f := NewHTTPFeed(HTTPOptions{}, zerolog.Nop())
	if _, err := f.FetchPrices(context.Background()); err == nil {
		t.Fatal("未配置 URL 应报错")
	}
}

func TestFetchPricesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFeed(HTTPOptions{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := f.FetchPrices(context.Background()); err == nil {
		t.Fatal("HTTP 502 应返回错误")
	}
}

func TestFetchPricesSkipsInvalidMints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"mint": "So11111111111111111111111111111111111111112", "symbol": "SOL", "usdPrice": 142.5},
			{"mint": "not-a-mint", "symbol": "BAD", "usdPrice": 1}
		]`))
	}))
	defer srv.Close()

	f := NewHTTPFeed(HTTPOptions{URL: srv.URL, Timeout: time.Second, UserAgent: "test"}, zerolog.Nop())

	quotes, err := f.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("无效 mint 应被跳过, 实际 %d 条", len(quotes))
	}
	if quotes[0].Symbol != "SOL" {
		t.Fatalf("符号不正确: %s", quotes[0].Symbol)
	}
	if !quotes[0].Price.Equal(decimal.RequireFromString("142.5")) {
		t.Fatalf("价格不正确: %s", quotes[0].Price)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatcher/internal/storage"
)

func TestTelegramPublishSuccess(t *testing.T) {
	var mu sync.Mutex
	received := make(map[string]string)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Errorf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		mu.Lock()
		received[payload["chat_id"]] = payload["text"]
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := newTestNotifier(t, srv.URL, []string{"admin1", "admin2"})

	if err := notifier.Publish(context.Background(), testUpdate()); err != nil {
		t.Fatalf("Publish 应成功: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("应送达 3 个接收者, 实际 %d", len(received))
	}
	for _, id := range []string{"@goldchannel", "admin1", "admin2"} {
		text, ok := received[id]
		if !ok {
			t.Fatalf("接收者 %s 未收到消息", id)
		}
		if !strings.Contains(text, "Gold Price Update") {
			t.Fatalf("消息内容不完整: %q", text)
		}
	}
}

func TestTelegramPublishPartialFailure(t *testing.T) {
	var mu sync.Mutex
	delivered := make(map[string]bool)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["chat_id"] == "admin2" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
			return
		}
		mu.Lock()
		delivered[payload["chat_id"]] = true
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := newTestNotifier(t, srv.URL, []string{"admin1", "admin2"})

	err := notifier.Publish(context.Background(), testUpdate())
	if err == nil {
		t.Fatal("部分失败时应返回错误")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("应返回 *DeliveryError, 实际 %T", err)
	}
	if len(deliveryErr.Failures) != 1 {
		t.Fatalf("应只有 1 个失败接收者, 实际 %d", len(deliveryErr.Failures))
	}
	if _, ok := deliveryErr.Failures["admin2"]; !ok {
		t.Fatalf("失败接收者应为 admin2: %v", deliveryErr.Failures)
	}

	mu.Lock()
	defer mu.Unlock()
	if !delivered["@goldchannel"] || !delivered["admin1"] {
		t.Fatalf("其余接收者仍应送达: %v", delivered)
	}
}

func TestTelegramPublishHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := newTestNotifier(t, srv.URL, nil)

	if err := notifier.Publish(context.Background(), testUpdate()); err == nil {
		t.Fatal("HTTP 502 应返回错误")
	}
}

func TestNewTelegramNotifierRejectsBadProxy(t *testing.T) {
	_, err := NewTelegramNotifier(TelegramOptions{
		BotToken:  "token",
		ChannelID: "chat",
		ProxyURL:  "://bad",
	}, zerolog.Nop())
	if err == nil {
		t.Fatal("非法 proxy URL 应报错")
	}
}

func newTestNotifier(t *testing.T, baseURL string, admins []string) *TelegramNotifier {
	t.Helper()
	notifier, err := NewTelegramNotifier(TelegramOptions{
		BotToken:     "token",
		ChannelID:    "@goldchannel",
		AdminChatIDs: admins,
		BaseURL:      baseURL,
		Timeout:      time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("构造 notifier 失败: %v", err)
	}
	return notifier
}

func testUpdate() Update {
	estimate := decimal.NewFromInt(1_060_000)
	return Update{
		Record: storage.PriceRecord{
			ID:            "rec-1",
			Timestamp:     time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC),
			SourceID:      "zarbaha",
			BuyPrice:      decimal.NewFromInt(1_050_000),
			SellPrice:     decimal.NewFromInt(1_130_000),
			EstimatePrice: &estimate,
		},
		Location: time.UTC,
	}
}

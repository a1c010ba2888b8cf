package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goldwatcher/internal/storage"
)

func TestRenderMessage(t *testing.T) {
	estimate := decimal.NewFromInt(1_060_000)
	update := Update{
		Record: storage.PriceRecord{
			Timestamp:     time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
			BuyPrice:      decimal.NewFromInt(43_318_020),
			SellPrice:     decimal.NewFromInt(1_130_000),
			EstimatePrice: &estimate,
		},
		Location: time.FixedZone("IRST", 3*3600+1800),
	}

	text := renderMessage(update)

	for _, want := range []string{
		"<b>Gold Price Update</b>",
		"43,318,020 Toman", // mesqal buy
		"10,000,000 Toman", // per-gram buy: 43318020 / 4.331802
		"1,130,000 Toman",
		"2024/05/10 - 12:30:00", // 09:00 UTC shown in IRST
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("消息缺少 %q:\n%s", want, text)
		}
	}
}

func TestDirectionIcon(t *testing.T) {
	mk := func(estimate int64) *storage.PriceRecord {
		e := decimal.NewFromInt(estimate)
		return &storage.PriceRecord{EstimatePrice: &e}
	}

	cases := []struct {
		name     string
		current  *storage.PriceRecord
		previous *storage.PriceRecord
		want     string
	}{
		{"up", mk(1100), mk(1000), "🟢"},
		{"down", mk(1000), mk(1100), "🔴"},
		{"flat", mk(1000), mk(1000), "⚪"},
		{"no previous", mk(1000), nil, "⚪"},
		{"no estimate", &storage.PriceRecord{}, mk(1000), "⚪"},
	}
	for _, tc := range cases {
		update := Update{Record: *tc.current, Previous: tc.previous}
		if got := directionIcon(update); got != tc.want {
			t.Fatalf("%s: 方向图标应为 %s, 实际 %s", tc.name, tc.want, got)
		}
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[string]string{
		"0":        "0",
		"999":      "999",
		"1000":     "1,000",
		"1234567":  "1,234,567",
		"-1234567": "-1,234,567",
	}
	for input, want := range cases {
		if got := groupDigits(input); got != want {
			t.Fatalf("groupDigits(%q) = %q, 应为 %q", input, got, want)
		}
	}
}

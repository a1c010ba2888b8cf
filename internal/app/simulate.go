package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"goldwatcher/internal/scraper"
	"goldwatcher/internal/service"
)

// SimulatePrice 用给定的买/卖价走一遍完整流水线（去重、落盘、推送）。
func (a *App) SimulatePrice(ctx context.Context, buy, sell decimal.Decimal) error {
	if !a.Config.Telegram.Enabled {
		return errors.New("telegram 未启用，无法验证推送")
	}

	location, err := a.Config.Location()
	if err != nil {
		return err
	}

	store, err := a.openFileStore()
	if err != nil {
		return err
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	fetcher := &staticQuoteFetcher{buy: buy, sell: sell}
	svc := service.New(a.Config, fetcher, store, nil, notifier, location, a.Logger)

	return svc.Run(ctx)
}

type staticQuoteFetcher struct {
	buy  decimal.Decimal
	sell decimal.Decimal
}

func (s *staticQuoteFetcher) FetchQuote(ctx context.Context) (scraper.RawQuote, error) {
	estimate := s.buy.Add(s.sell).Div(decimal.NewFromInt(2))
	return scraper.RawQuote{
		Buy:       s.buy,
		Sell:      s.sell,
		Estimate:  &estimate,
		FetchedAt: time.Now().UTC(),
	}, nil
}

var _ scraper.QuoteFetcher = (*staticQuoteFetcher)(nil)

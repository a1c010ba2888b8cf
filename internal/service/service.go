package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatcher/internal/config"
	"goldwatcher/internal/notify"
	"goldwatcher/internal/scraper"
	"goldwatcher/internal/storage"
)

// ErrInvalidQuote marks a quote rejected by normalization sanity checks.
var ErrInvalidQuote = errors.New("quote failed validation")

// Service orchestrates one scrape–validate–dedupe–persist–notify run.
type Service struct {
	fetcher  scraper.QuoteFetcher
	store    storage.PriceStore
	archive  storage.RecordArchive
	notifier notify.Notifier
	logger   zerolog.Logger

	buyAdjustment  decimal.Decimal
	sellAdjustment decimal.Decimal
	sourceID       string
	location       *time.Location
}

// New constructs the price service. archive and notifier may be nil.
func New(cfg *config.Config, fetcher scraper.QuoteFetcher, store storage.PriceStore, archive storage.RecordArchive, notifier notify.Notifier, location *time.Location, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:        fetcher,
		store:          store,
		archive:        archive,
		notifier:       notifier,
		logger:         logger.With().Str("component", "service").Logger(),
		buyAdjustment:  decimal.NewFromFloat(cfg.Rates.BuyAdjustment),
		sellAdjustment: decimal.NewFromFloat(cfg.Rates.SellAdjustment),
		sourceID:       cfg.Source.ID,
		location:       location,
	}
}

// Run executes a single pipeline pass. Any returned error terminates the run
// without further side effects; the next tick retries independently.
func (s *Service) Run(ctx context.Context) error {
	quote, err := s.fetcher.FetchQuote(ctx)
	if err != nil {
		return fmt.Errorf("fetch quote: %w", err)
	}

	record, err := s.normalize(quote)
	if err != nil {
		return err
	}

	latest, exists, err := s.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("read latest record: %w", err)
	}

	// Any difference on the buy/sell pair counts as a change; exact
	// equality is the only "unchanged" case.
	if exists && latest.BuyPrice.Equal(record.BuyPrice) && latest.SellPrice.Equal(record.SellPrice) {
		s.logger.Debug().
			Str("buy", record.BuyPrice.String()).
			Str("sell", record.SellPrice.String()).
			Msg("price unchanged; nothing to persist")
		return nil
	}

	if err := s.store.Append(ctx, record); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("buy", record.BuyPrice.String()).
		Str("sell", record.SellPrice.String()).
		Msg("price record stored")

	if s.archive != nil {
		if err := s.archive.InsertRecord(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("record_id", record.ID).Msg("failed to archive record")
		}
	}

	if s.notifier != nil {
		var previous *storage.PriceRecord
		if exists {
			previous = &latest
		}
		update := notify.Update{Record: record, Previous: previous, Location: s.location}
		// A stored record is never rolled back or re-broadcast on a
		// delivery failure.
		if err := s.notifier.Publish(ctx, update); err != nil {
			s.logger.Error().Err(err).Str("record_id", record.ID).Msg("failed to broadcast price update")
		}
	}

	return nil
}

// normalize applies the configured rate offsets and builds the candidate
// record. Quotes that end up negative are rejected and never persisted.
func (s *Service) normalize(quote scraper.RawQuote) (storage.PriceRecord, error) {
	if quote.Buy.IsNegative() || quote.Sell.IsNegative() {
		return storage.PriceRecord{}, fmt.Errorf("%w: negative quote (buy=%s sell=%s)",
			ErrInvalidQuote, quote.Buy, quote.Sell)
	}

	buy := quote.Buy.Add(s.buyAdjustment)
	sell := quote.Sell.Add(s.sellAdjustment)
	if buy.IsNegative() || sell.IsNegative() {
		return storage.PriceRecord{}, fmt.Errorf("%w: adjusted price negative (buy=%s sell=%s)",
			ErrInvalidQuote, buy, sell)
	}

	captured := quote.FetchedAt
	if captured.IsZero() {
		captured = time.Now()
	}

	record := storage.PriceRecord{
		ID:             uuid.NewString(),
		Timestamp:      captured.UTC(),
		SourceID:       s.sourceID,
		BuyPrice:       buy,
		SellPrice:      sell,
		BuyAdjustment:  s.buyAdjustment,
		SellAdjustment: s.sellAdjustment,
	}
	if quote.Estimate != nil {
		estimate := *quote.Estimate
		record.EstimatePrice = &estimate
	}
	return record, nil
}

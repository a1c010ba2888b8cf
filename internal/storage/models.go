package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one persisted, normalized price observation. Records are
// immutable once appended and ordered by capture timestamp.
type PriceRecord struct {
	ID             string           `json:"id"`
	Timestamp      time.Time        `json:"timestamp"`
	SourceID       string           `json:"source_id"`
	BuyPrice       decimal.Decimal  `json:"buy_price"`
	SellPrice      decimal.Decimal  `json:"sell_price"`
	EstimatePrice  *decimal.Decimal `json:"estimate_price,omitempty"`
	BuyAdjustment  decimal.Decimal  `json:"buy_adjustment"`
	SellAdjustment decimal.Decimal  `json:"sell_adjustment"`
}

// PriceStore defines operations on the append-ordered record log.
type PriceStore interface {
	Append(ctx context.Context, record PriceRecord) error
	Latest(ctx context.Context) (PriceRecord, bool, error)
	All(ctx context.Context) ([]PriceRecord, error)
	Count(ctx context.Context) (int64, error)
}

// RecordArchive mirrors appended records into long-term history.
type RecordArchive interface {
	InsertRecord(ctx context.Context, record PriceRecord) error
	ListRecentRecords(ctx context.Context, limit int) ([]PriceRecord, error)
	ListRecordsBetween(ctx context.Context, from, to time.Time) ([]PriceRecord, error)
	CountRecords(ctx context.Context) (int64, error)
}

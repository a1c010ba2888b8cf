package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reason classifies why an extraction failed.
type Reason string

const (
	// ReasonUnreachable covers network and HTTP-status failures.
	ReasonUnreachable Reason = "unreachable"
	// ReasonStructure means an expected page element was absent.
	ReasonStructure Reason = "structure"
	// ReasonParse means a price text could not be read as a number.
	ReasonParse Reason = "parse"
	// ReasonTimeout means the fetch exceeded its configured deadline.
	ReasonTimeout Reason = "timeout"
)

// ExtractionError is the single error kind surfaced by quote fetchers.
type ExtractionError struct {
	Reason Reason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed (%s)", e.Reason)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RawQuote is a buy/sell price pair as read from the source page, before
// any rate adjustment.
type RawQuote struct {
	Buy       decimal.Decimal
	Sell      decimal.Decimal
	Estimate  *decimal.Decimal
	FetchedAt time.Time
}

// QuoteFetcher retrieves a raw quotation from the configured source.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context) (RawQuote, error)
}

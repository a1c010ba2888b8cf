package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options parameterise the page scraper.
type Options struct {
	URL              string
	BuySelector      string
	SellSelector     string
	EstimateSelector string
	UserAgent        string
	Timeout          time.Duration
}

// Zarbaha extracts gold price quotations from the dealer's public page.
type Zarbaha struct {
	opts   Options
	logger zerolog.Logger
	client *resty.Client
}

// NewZarbaha constructs a page scraper.
func NewZarbaha(opts Options, logger zerolog.Logger) *Zarbaha {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	opts.Timeout = timeout

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html")
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		client.SetHeader("User-Agent", ua)
	}

	return &Zarbaha{
		opts:   opts,
		logger: logger.With().Str("component", "scraper").Logger(),
		client: client,
	}
}

// FetchQuote downloads the page and extracts the buy/sell quotation. All
// failures surface as an *ExtractionError with a reason code; the underlying
// HTTP connection is released on every path.
func (z *Zarbaha) FetchQuote(ctx context.Context) (RawQuote, error) {
	if z.opts.URL == "" {
		return RawQuote{}, &ExtractionError{Reason: ReasonUnreachable, Err: errors.New("source url not configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, z.opts.Timeout)
	defer cancel()

	res, err := z.client.R().
		SetContext(ctx).
		Get(z.opts.URL)
	if err != nil {
		return RawQuote{}, &ExtractionError{Reason: classifyTransport(err), Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return RawQuote{}, &ExtractionError{
			Reason: ReasonUnreachable,
			Err:    fmt.Errorf("unexpected status %d from %s", res.StatusCode(), z.opts.URL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return RawQuote{}, &ExtractionError{Reason: ReasonStructure, Err: err}
	}

	buy, err := z.extractPrice(doc, z.opts.BuySelector)
	if err != nil {
		return RawQuote{}, err
	}
	sell, err := z.extractPrice(doc, z.opts.SellSelector)
	if err != nil {
		return RawQuote{}, err
	}

	quote := RawQuote{
		Buy:       buy,
		Sell:      sell,
		FetchedAt: time.Now().UTC(),
	}

	// The estimate figure is informational; a page without it is still a
	// usable quotation.
	if z.opts.EstimateSelector != "" {
		if estimate, err := z.extractPrice(doc, z.opts.EstimateSelector); err == nil {
			quote.Estimate = &estimate
		} else {
			z.logger.Debug().Err(err).Str("selector", z.opts.EstimateSelector).Msg("estimate price unavailable")
		}
	}

	z.logger.Debug().
		Str("buy", quote.Buy.String()).
		Str("sell", quote.Sell.String()).
		Msg("quote extracted")

	return quote, nil
}

func (z *Zarbaha) extractPrice(doc *goquery.Document, selector string) (decimal.Decimal, error) {
	node := doc.Find(selector).First()
	if node.Length() == 0 {
		return decimal.Decimal{}, &ExtractionError{
			Reason: ReasonStructure,
			Err:    fmt.Errorf("price element %q not found", selector),
		}
	}

	price, err := parsePrice(node.Text())
	if err != nil {
		return decimal.Decimal{}, &ExtractionError{
			Reason: ReasonParse,
			Err:    fmt.Errorf("element %q: %w", selector, err),
		}
	}
	return price, nil
}

// parsePrice normalises a localized price string. The source renders values
// with thousands separators and sometimes Persian digits.
func parsePrice(text string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9' || r == '.' || r == '-':
			b.WriteRune(r)
		case r >= '۰' && r <= '۹': // Persian digits
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩': // Arabic-Indic digits
			b.WriteRune('0' + (r - '٠'))
		case r == ',' || r == '٬' || r == ' ' || r == ' ':
			// separators
		default:
			// unit suffixes and markup remnants
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("no numeric content in %q", text)
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %q: %w", text, err)
	}
	return price, nil
}

func classifyTransport(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonUnreachable
}

var _ QuoteFetcher = (*Zarbaha)(nil)

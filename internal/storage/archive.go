package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the archive pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createRecordsTableSQL = `CREATE TABLE IF NOT EXISTS price_records (
        id              UUID PRIMARY KEY,
        captured_at     TIMESTAMPTZ NOT NULL,
        source_id       TEXT NOT NULL,
        buy_price       NUMERIC NOT NULL,
        sell_price      NUMERIC NOT NULL,
        estimate_price  NUMERIC,
        buy_adjustment  NUMERIC NOT NULL,
        sell_adjustment NUMERIC NOT NULL,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS price_records_captured_at_idx
        ON price_records (captured_at);`

	insertRecordSQL = `INSERT INTO price_records (
        id,
        captured_at,
        source_id,
        buy_price,
        sell_price,
        estimate_price,
        buy_adjustment,
        sell_adjustment
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (id) DO NOTHING;`

	listRecentRecordsSQL = `SELECT
        id,
        captured_at,
        source_id,
        buy_price,
        sell_price,
        estimate_price,
        buy_adjustment,
        sell_adjustment
    FROM price_records
    ORDER BY captured_at DESC
    LIMIT $1;`

	listRecordsBetweenSQL = `SELECT
        id,
        captured_at,
        source_id,
        buy_price,
        sell_price,
        estimate_price,
        buy_adjustment,
        sell_adjustment
    FROM price_records
    WHERE captured_at >= $1
      AND captured_at < $2
    ORDER BY captured_at;`

	countRecordsSQL = `SELECT COUNT(*) FROM price_records;`
)

// Archive keeps the full price history in PostgreSQL. The file store stays
// authoritative for the pipeline; the archive only feeds show/export.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wires a pgx pool into an Archive.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Close releases the underlying pool resources.
func (a *Archive) Close() {
	if a == nil || a.pool == nil {
		return
	}
	a.pool.Close()
}

// EnsureSchema creates the archive table when missing.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createRecordsTableSQL); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

func (a *Archive) getPool() (*pgxpool.Pool, error) {
	if a == nil || a.pool == nil {
		return nil, ErrNotConfigured
	}
	return a.pool, nil
}

// InsertRecord mirrors an appended record into the archive.
func (a *Archive) InsertRecord(ctx context.Context, record PriceRecord) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}

	var estimate interface{}
	if record.EstimatePrice != nil {
		estimate = record.EstimatePrice.String()
	}

	_, execErr := pool.Exec(ctx, insertRecordSQL,
		record.ID,
		record.Timestamp,
		record.SourceID,
		record.BuyPrice.String(),
		record.SellPrice.String(),
		estimate,
		record.BuyAdjustment.String(),
		record.SellAdjustment.String(),
	)
	if execErr != nil {
		return fmt.Errorf("insert price record: %w", execErr)
	}
	return nil
}

// ListRecentRecords lists the most recent records ordered by descending capture time.
func (a *Archive) ListRecentRecords(ctx context.Context, limit int) ([]PriceRecord, error) {
	pool, err := a.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRecordsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]PriceRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanPriceRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListRecordsBetween lists records within a capture-time window.
func (a *Archive) ListRecordsBetween(ctx context.Context, from, to time.Time) ([]PriceRecord, error) {
	pool, err := a.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecordsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list records between: %w", queryErr)
	}
	defer rows.Close()

	records := make([]PriceRecord, 0)
	for rows.Next() {
		record, scanErr := scanPriceRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountRecords counts archived records.
func (a *Archive) CountRecords(ctx context.Context) (int64, error) {
	pool, err := a.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRecordsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count records: %w", scanErr)
	}
	return count, nil
}

func scanPriceRecord(rows pgx.Rows) (PriceRecord, error) {
	var (
		id          string
		capturedAt  time.Time
		sourceID    string
		buyStr      string
		sellStr     string
		estimateStr sql.NullString
		buyAdjStr   string
		sellAdjStr  string
	)

	if err := rows.Scan(
		&id,
		&capturedAt,
		&sourceID,
		&buyStr,
		&sellStr,
		&estimateStr,
		&buyAdjStr,
		&sellAdjStr,
	); err != nil {
		return PriceRecord{}, err
	}

	buy, err := decimal.NewFromString(buyStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse buy price: %w", err)
	}
	sell, err := decimal.NewFromString(sellStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse sell price: %w", err)
	}
	buyAdj, err := decimal.NewFromString(buyAdjStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse buy adjustment: %w", err)
	}
	sellAdj, err := decimal.NewFromString(sellAdjStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse sell adjustment: %w", err)
	}

	record := PriceRecord{
		ID:             id,
		Timestamp:      capturedAt,
		SourceID:       sourceID,
		BuyPrice:       buy,
		SellPrice:      sell,
		BuyAdjustment:  buyAdj,
		SellAdjustment: sellAdj,
	}

	if estimateStr.Valid {
		estimate, err := decimal.NewFromString(estimateStr.String)
		if err != nil {
			return PriceRecord{}, fmt.Errorf("parse estimate price: %w", err)
		}
		record.EstimatePrice = &estimate
	}

	return record, nil
}

var _ RecordArchive = (*Archive)(nil)

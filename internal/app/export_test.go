package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldwatcher/internal/config"
	"goldwatcher/internal/storage"
)

func TestDownsampleRecords(t *testing.T) {
	records := make([]storage.PriceRecord, 10)
	for i := range records {
		records[i] = exportRecord(t, i)
	}

	sampled := downsampleRecords(records, 4)
	require.Len(t, sampled, 4)
	assert.Equal(t, records[0].ID, sampled[0].ID)
	assert.Equal(t, records[9].ID, sampled[3].ID)

	// below the cap nothing is dropped
	assert.Len(t, downsampleRecords(records, 100), 10)
	assert.Len(t, downsampleRecords(records, 0), 10)
}

func TestWriteRecordsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prices.csv")
	records := []storage.PriceRecord{exportRecord(t, 0), exportRecord(t, 1)}

	require.NoError(t, writeRecordsCSV(path, records))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "1000000", rows[1][1])
	assert.Equal(t, "zarbaha", rows[1][6])
}

func TestRecordsBetweenFiltersByTimestamp(t *testing.T) {
	a := newFileBackedApp(t)
	ctx := context.Background()

	store, err := a.openFileStore()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, exportRecord(t, i)))
	}

	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	records, err := a.recordsBetween(ctx, base.Add(1*time.Minute), base.Add(4*time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 3) // minutes 1,2,3: from inclusive, to exclusive
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "rec-3", records[2].ID)
}

func TestRecentRecordsNewestFirst(t *testing.T) {
	a := newFileBackedApp(t)
	ctx := context.Background()

	store, err := a.openFileStore()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, exportRecord(t, i)))
	}

	records, err := a.recentRecords(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rec-4", records[0].ID)
	assert.Equal(t, "rec-2", records[2].ID)
}

func newFileBackedApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Store: config.StoreConfig{Path: filepath.Join(t.TempDir(), "prices.jsonl")},
		Scheduler: config.SchedulerConfig{
			Interval: 5 * time.Minute,
			Timezone: "UTC",
		},
		Export: config.ExportConfig{MaxDataPoints: 1000},
	}
	return NewApp(cfg, zerolog.Nop())
}

func exportRecord(t *testing.T, minute int) storage.PriceRecord {
	t.Helper()
	return storage.PriceRecord{
		ID:        fmt.Sprintf("rec-%d", minute),
		Timestamp: time.Date(2024, 5, 10, 12, minute, 0, 0, time.UTC),
		SourceID:  "zarbaha",
		BuyPrice:  decimal.NewFromInt(1_000_000 + int64(minute)*1000),
		SellPrice: decimal.NewFromInt(1_010_000 + int64(minute)*1000),
	}
}

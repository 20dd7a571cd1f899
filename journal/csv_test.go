package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	recs, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	pnlPath := filepath.Join(dir, "pnl.csv")

	j, err := NewCSV(tradesPath, pnlPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{pnlHeader}, readCSV(t, pnlPath))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	pnlPath := filepath.Join(dir, "pnl.csv")

	j, err := NewCSV(tradesPath, pnlPath)
	require.NoError(t, err)

	exit := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("T1", "S1", exit, "20")))
	require.NoError(t, j.RecordPnL(PnLSnapshot{
		SessionID:     "S1",
		Cursor:        1,
		Key:           "2024-01-02T00:00:00Z",
		Price:         110,
		Realized:      decimal.Zero,
		Open:          decimal.NewFromInt(10),
		Total:         decimal.NewFromInt(10),
		OpenPositions: 1,
	}))

	// rows are flushed as they are written
	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 2)
	assert.Equal(t, []string{"T1", "S1", "SPY", "sma", "2024-01-02T00:00:00Z", "2024-01-02T00:00:00Z", "100",
		"2024-01-03T00:00:00Z", "2024-01-03T00:00:00Z", "120", "20", "signal"}, trades[1])

	pnl := readCSV(t, pnlPath)
	require.Len(t, pnl, 2)
	assert.Equal(t, []string{"S1", "1", "2024-01-02T00:00:00Z", "", "110", "0", "10", "10", "1"}, pnl[1])

	require.NoError(t, j.Close())
}

func TestNopJournal(t *testing.T) {
	var j Journal = Nop{}
	assert.NoError(t, j.RecordTrade(TradeRecord{}))
	assert.NoError(t, j.RecordPnL(PnLSnapshot{}))
	assert.NoError(t, j.Close())
}

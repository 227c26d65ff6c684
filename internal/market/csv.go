package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	"github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// readCSV loads bars from a local file with columns
// timestamp,open,high,low,close,volume. A header row is skipped if present,
// and timestamps may be unix milliseconds or RFC3339.
func (f *Feed) readCSV() ([]signal.Bar, error) {
	if f.csvPath == "" {
		return nil, fmt.Errorf("csv feed requires a file path")
	}
	fh, err := os.Open(f.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	bars := make([]signal.Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(row))
		}
		if i == 0 && isHeaderRow(row) {
			continue
		}
		ts, err := parseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		vals := make([]float64, 5)
		for j := 1; j <= 5; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			vals[j-1] = v
		}
		bars = append(bars, signal.Bar{
			Ts:     ts,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
		metrics.BarsTotal.WithLabelValues(f.symbol).Inc()
	}
	f.log.Info().Str("path", f.csvPath).Int("bars", len(bars)).Msg("loaded csv history")
	return bars, nil
}

func isHeaderRow(row []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	return err != nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sawpanic/structrun/internal/domain"
)

// LoadCandlesCSV reads an ordered candle history from a CSV file with header
// time,open,high,low,close. Timestamps are RFC3339 or unix seconds. PDIs are
// assigned from the row order.
func LoadCandlesCSV(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer f.Close()

	return ReadCandles(f)
}

// ReadCandles parses candle rows from r. The header row is required.
func ReadCandles(r io.Reader) ([]domain.Candle, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read candle header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("candle header missing column %q", name)
		}
	}

	var candles []domain.Candle
	var prev time.Time
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candle row %d: %w", line, err)
		}

		t, err := parseTime(row[col["time"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if !prev.IsZero() && !t.After(prev) {
			return nil, fmt.Errorf("row %d: candle time %s not after previous %s", line, t, prev)
		}
		prev = t

		c := domain.Candle{PDI: len(candles), Time: t}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close},
		} {
			v, err := strconv.ParseFloat(row[col[field.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: parse %s: %w", line, field.name, err)
			}
			*field.dst = v
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}

// Package feed supplies historical candles to the evaluation loop.
// The file feed reads per-symbol CSV exports, which keeps the engine
// runnable against recorded market data without any broker dependency.
package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"quant-corev1/internal/model"
)

// FileFeed implements model.MarketDataFeed over a directory of CSV
// files, one per symbol ("{dir}/{SYMBOL}.csv"). Row format:
//
//	ts,open,high,low,close,volume
//
// ts is a Unix timestamp in seconds. A header row is skipped when the
// first field does not parse as an integer.
type FileFeed struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedSeries
}

type cachedSeries struct {
	modTime time.Time
	series  model.Series
}

// NewFileFeed creates a feed over dir.
func NewFileFeed(dir string) *FileFeed {
	return &FileFeed{dir: dir, cache: make(map[string]cachedSeries)}
}

// GetOHLCV returns up to limit most recent candles for symbol. The
// interval parameter is accepted for interface parity; file exports
// carry a single interval. A missing or empty file maps to
// ErrMarketDataUnavailable.
func (f *FileFeed) GetOHLCV(ctx context.Context, symbol, interval string, limit int) (model.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series, err := f.load(symbol)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}

	out := make(model.Series, len(series))
	copy(out, series)
	return out, nil
}

// load returns the parsed series for symbol, re-reading the file only
// when its mtime changed.
func (f *FileFeed) load(symbol string) (model.Series, error) {
	path := filepath.Join(f.dir, symbol+".csv")
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMarketDataUnavailable, symbol, err)
	}

	f.mu.Lock()
	cached, ok := f.cache[symbol]
	f.mu.Unlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.series, nil
	}

	series, err := readCSV(path, symbol)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s: empty candle file", model.ErrMarketDataUnavailable, symbol)
	}

	f.mu.Lock()
	f.cache[symbol] = cachedSeries{modTime: info.ModTime(), series: series}
	f.mu.Unlock()
	return series, nil
}

func readCSV(path, symbol string) (model.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrMarketDataUnavailable, symbol, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 6

	var series model.Series
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: parse %s line %d: %w", path, line+1, err)
		}
		line++

		ts, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("feed: parse %s line %d: bad timestamp %q", path, line, record[0])
		}

		var vals [5]float64
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("feed: parse %s line %d field %d: %w", path, line, i+1, err)
			}
			vals[i] = v
		}

		series = append(series, model.Candle{
			Symbol: symbol,
			TS:     time.Unix(ts, 0).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return series, nil
}

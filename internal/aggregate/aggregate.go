// Package aggregate post-processes canonical bar slices: ordering the
// merged multi-symbol output and resampling fine bars into coarser
// intervals.
package aggregate

import (
	"sort"

	"barprovider/internal/interval"
	"barprovider/internal/schema"
)

// SortBars orders bars by symbol, then by time in the given order.
// Concurrent multi-symbol extraction returns rows in task-completion
// order; this restores a deterministic layout for files and responses.
func SortBars(bars []schema.Bar, order schema.SortOrder) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		if order == schema.SortDesc {
			return bars[j].Date.Time().Before(bars[i].Date.Time())
		}
		return bars[i].Date.Time().Before(bars[j].Date.Time())
	})
}

// bucketKey identifies one resampled output bar.
type bucketKey struct {
	symbol string
	start  int64
}

// Resample combines bars into coarser buckets of the given spec:
// open from the first bar, close from the last, high/low from the
// extremes, volume and transactions summed, vwap volume-weighted.
// Input bars may arrive in any order; output is sorted ascending per
// symbol. Specs finer than the input leave bars in their own buckets.
func Resample(bars []schema.Bar, spec interval.Spec) []schema.Bar {
	type bucket struct {
		first, last schema.Bar
		high, low   float64
		volume      float64
		hasVolume   bool
		vwapNum     float64 // sum(vwap*volume)
		vwapVol     float64
		txns        int64
		hasTxns     bool
	}

	buckets := make(map[bucketKey]*bucket, len(bars))
	for _, b := range bars {
		start := spec.Truncate(b.Date.Time())
		key := bucketKey{symbol: b.Symbol, start: start.Unix()}
		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{first: b, last: b, high: b.High, low: b.Low}
			buckets[key] = bk
		} else {
			if b.Date.Time().Before(bk.first.Date.Time()) {
				bk.first = b
			}
			if !b.Date.Time().Before(bk.last.Date.Time()) {
				bk.last = b
			}
			if b.High > bk.high {
				bk.high = b.High
			}
			if b.Low < bk.low {
				bk.low = b.Low
			}
		}
		if b.Volume != nil {
			bk.volume += *b.Volume
			bk.hasVolume = true
			if b.VWAP != nil {
				bk.vwapNum += *b.VWAP * *b.Volume
				bk.vwapVol += *b.Volume
			}
		}
		if b.Transactions != nil {
			bk.txns += *b.Transactions
			bk.hasTxns = true
		}
	}

	out := make([]schema.Bar, 0, len(buckets))
	for key, bk := range buckets {
		bar := schema.Bar{
			Open:   bk.first.Open,
			High:   bk.high,
			Low:    bk.low,
			Close:  bk.last.Close,
			Symbol: key.symbol,
		}
		start := spec.Truncate(bk.first.Date.Time())
		if spec.Unit.Intraday() {
			bar.Date = schema.InstantOf(start)
		} else {
			bar.Date = schema.DateOf(start)
		}
		if bk.hasVolume {
			v := bk.volume
			bar.Volume = &v
		}
		if bk.vwapVol > 0 {
			w := bk.vwapNum / bk.vwapVol
			bar.VWAP = &w
		}
		if bk.hasTxns {
			n := bk.txns
			bar.Transactions = &n
		}
		out = append(out, bar)
	}
	SortBars(out, schema.SortAsc)
	return out
}

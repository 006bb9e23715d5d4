// Package saver persists canonical bars to disk in csv, json or
// parquet form behind a common interface.
package saver

import (
	"strconv"
	"strings"

	"barprovider/internal/schema"
)

// BarSaver writes one batch of bars to a file. Implementations choose
// the encoding; Extension reports the file suffix they produce.
type BarSaver interface {
	Extension() string
	Save(bars []schema.Bar, path string) error
}

// New returns the saver for a format name (csv, json, parquet), or nil
// when the format is not supported.
func New(format string) BarSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	}
	return nil
}

// row is the flat serialization shape shared by csv and parquet.
type row struct {
	Date         string   `parquet:"date"`
	Open         float64  `parquet:"open"`
	High         float64  `parquet:"high"`
	Low          float64  `parquet:"low"`
	Close        float64  `parquet:"close"`
	Volume       *float64 `parquet:"volume,optional"`
	VWAP         *float64 `parquet:"vwap,optional"`
	Transactions *int64   `parquet:"transactions,optional"`
	Symbol       string   `parquet:"symbol,optional"`
}

func flatten(bars []schema.Bar) []row {
	rows := make([]row, len(bars))
	for i, b := range bars {
		rows[i] = row{
			Date:         b.Date.String(),
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			VWAP:         b.VWAP,
			Transactions: b.Transactions,
			Symbol:       b.Symbol,
		}
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package saver

import (
	"encoding/csv"
	"os"
	"strconv"

	"barprovider/internal/schema"
)

// CSVSaver writes bars as a header-led CSV file. Optional fields are
// left empty when absent.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(bars []schema.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "open", "high", "low", "close", "volume", "vwap", "transactions", "symbol"}); err != nil {
		return err
	}
	for _, r := range flatten(bars) {
		rec := []string{
			r.Date,
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Close),
			"", "", "",
			r.Symbol,
		}
		if r.Volume != nil {
			rec[5] = formatFloat(*r.Volume)
		}
		if r.VWAP != nil {
			rec[6] = formatFloat(*r.VWAP)
		}
		if r.Transactions != nil {
			rec[7] = strconv.FormatInt(*r.Transactions, 10)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

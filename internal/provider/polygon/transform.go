package polygon

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tidwall/gjson"

	"barprovider/internal/fetcher"
	"barprovider/internal/schema"
)

// aliases maps canonical field names to the vendor's short keys.
var aliases = map[string]string{
	"date":         "t",
	"open":         "o",
	"high":         "h",
	"low":          "l",
	"close":        "c",
	"volume":       "v",
	"vwap":         "vw",
	"transactions": "n",
}

// Transform maps raw rows onto canonical bars. Rows failing
// required-field validation are dropped with a warning, or fail the
// batch when StrictRows is set. An empty final batch is
// fetcher.ErrEmptyData.
func (a *Adapter) Transform(q schema.Query, rows []fetcher.Row) ([]schema.Bar, error) {
	bars := make([]schema.Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := a.toBar(row)
		if err != nil {
			if a.cfg.StrictRows {
				return nil, fmt.Errorf("row rejected: %w", err)
			}
			slog.Warn("dropping invalid row", "vendor", a.Name(), "symbol", row.Symbol, "error", err)
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fetcher.ErrEmptyData
	}
	return bars, nil
}

func (a *Adapter) toBar(row fetcher.Row) (schema.Bar, error) {
	if row.Time.Time().IsZero() {
		return schema.Bar{}, fmt.Errorf("missing %s", aliases["date"])
	}
	bar := schema.Bar{Date: row.Time, Symbol: row.Symbol}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
	} {
		v, ok := numValue(gjson.GetBytes(row.Raw, aliases[f.name]))
		if !ok {
			return schema.Bar{}, fmt.Errorf("missing or non-numeric %s (%s)", f.name, aliases[f.name])
		}
		*f.dst = v
	}

	if res := gjson.GetBytes(row.Raw, aliases["volume"]); res.Exists() {
		v, ok := numValue(res)
		if !ok || v < 0 {
			return schema.Bar{}, fmt.Errorf("invalid volume %q", res.String())
		}
		bar.Volume = &v
	}
	if res := gjson.GetBytes(row.Raw, aliases["vwap"]); res.Exists() {
		v, ok := numValue(res)
		if !ok {
			return schema.Bar{}, fmt.Errorf("invalid vwap %q", res.String())
		}
		bar.VWAP = &v
	}
	if res := gjson.GetBytes(row.Raw, aliases["transactions"]); res.Exists() {
		v, ok := numValue(res)
		if !ok || v < 0 {
			return schema.Bar{}, fmt.Errorf("invalid transactions %q", res.String())
		}
		n := int64(v)
		bar.Transactions = &n
	}
	return bar, nil
}

// numValue accepts JSON numbers and numeric strings; some vendors emit
// volumes in scientific notation or quoted.
func numValue(res gjson.Result) (float64, bool) {
	switch res.Type {
	case gjson.Number:
		return res.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(res.String(), 64)
		return v, err == nil
	}
	return 0, false
}

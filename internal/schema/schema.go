package schema

import (
	"strings"
	"time"

	"barprovider/internal/interval"
)

// SortOrder controls the order of returned bars.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Params is the raw, user-supplied query before vendor normalization.
// Zero dates mean "use the vendor default window".
type Params struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Sort      SortOrder `json:"sort"`
	Limit     int       `json:"limit"`
}

// Query is a normalized, vendor-ready query. Only an adapter's
// NormalizeQuery constructs one; the derived Multiplier/Timespan fields
// are always populated and the value is never mutated afterwards.
type Query struct {
	Symbol    string
	Interval  string
	StartDate time.Time
	EndDate   time.Time
	Sort      SortOrder
	Limit     int

	// Derived from Interval at normalization time.
	Multiplier int
	Timespan   interval.Unit
}

// Symbols splits the (possibly comma-joined) symbol list.
func (q Query) Symbols() []string {
	parts := strings.Split(q.Symbol, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MultiSymbol reports whether the query covers more than one ticker.
func (q Query) MultiSymbol() bool {
	return len(q.Symbols()) > 1
}

// Bar is one canonical OHLCV record for a fixed time bucket. Bars are
// immutable values; optional fields are nil when the vendor omits them.
type Bar struct {
	Date         BarTime  `json:"date"`
	Open         float64  `json:"open"`
	High         float64  `json:"high"`
	Low          float64  `json:"low"`
	Close        float64  `json:"close"`
	Volume       *float64 `json:"volume,omitempty"`
	VWAP         *float64 `json:"vwap,omitempty"`
	Transactions *int64   `json:"transactions,omitempty"`
	// Symbol is set only when the originating query covered more than
	// one ticker; single-symbol responses rely on the query context.
	Symbol string `json:"symbol,omitempty"`
}

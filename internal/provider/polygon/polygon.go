// Package polygon adapts the Polygon-style aggregates API to the
// canonical fetch pipeline.
package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"barprovider/internal/fetcher"
	"barprovider/internal/interval"
	"barprovider/internal/schema"
)

// AssetClass selects the vendor's symbol conventions.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	// AssetCrypto tickers carry the vendor's "X:" prefix and forbid the
	// "-" pair separator.
	AssetCrypto AssetClass = "crypto"
)

const (
	defaultBaseURL        = "https://api.polygon.io"
	defaultCredential     = "polygon_api_key"
	defaultLimit          = 49999
	defaultMaxConcurrency = 4
	defaultMaxPages       = 50

	cryptoPrefix = "X:"
)

// Transport performs GET-and-decode requests, including pagination
// follow-ups. *httpx.Client implements it; callers own pooling, retry
// and timeout policy.
//
//go:generate mockgen -package=polygon_test -destination=mock_transport_test.go -source=polygon.go Transport
type Transport interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Config controls one adapter instance.
type Config struct {
	Name       string
	BaseURL    string
	AssetClass AssetClass
	// CredentialName is the named API key read from the credential store.
	CredentialName string
	// MaxConcurrency bounds concurrent per-symbol fetch tasks.
	MaxConcurrency int
	// MaxPages caps the pagination loop per symbol; a vendor still
	// returning continuation tokens past it fails that symbol with a
	// PageLimitError.
	MaxPages int
	// StrictRows fails the whole batch on the first invalid row instead
	// of dropping it with a warning.
	StrictRows bool
	// Limit is the default page-size cap when the query does not set one.
	Limit int
}

// Adapter implements fetcher.Adapter for the Polygon aggregates API.
type Adapter struct {
	cfg       Config
	transport Transport
}

func New(cfg Config, t Transport) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Polygon"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.AssetClass == "" {
		cfg.AssetClass = AssetEquity
	}
	if cfg.CredentialName == "" {
		cfg.CredentialName = defaultCredential
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	return &Adapter{cfg: cfg, transport: t}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// NormalizeQuery uppercases the symbol list, strips separators the
// vendor's ticker format forbids, applies the default one-year trailing
// window and derives the interval multiplier/timespan.
func (a *Adapter) NormalizeQuery(p schema.Params) (schema.Query, error) {
	sym := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if a.cfg.AssetClass == AssetCrypto {
		sym = strings.ReplaceAll(sym, "-", "")
	}
	if sym == "" || len(splitSymbols(sym)) == 0 {
		return schema.Query{}, &fetcher.ValidationError{Field: "symbol", Reason: "must not be empty"}
	}

	token := p.Interval
	if token == "" {
		token = "1d"
	}
	spec, err := interval.Parse(token)
	if err != nil {
		return schema.Query{}, &fetcher.ValidationError{Field: "interval", Err: err}
	}

	sortOrder := p.Sort
	switch sortOrder {
	case "":
		sortOrder = schema.SortDesc
	case schema.SortAsc, schema.SortDesc:
	default:
		return schema.Query{}, &fetcher.ValidationError{Field: "sort", Reason: fmt.Sprintf("unknown order %q", sortOrder)}
	}

	limit := p.Limit
	if limit == 0 {
		limit = a.cfg.Limit
	}
	if limit < 0 {
		return schema.Query{}, &fetcher.ValidationError{Field: "limit", Reason: "must be positive"}
	}

	end := p.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = truncateToDate(end)
	start := p.StartDate
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}
	start = truncateToDate(start)
	if start.After(end) {
		return schema.Query{}, &fetcher.ValidationError{Field: "start_date", Reason: "after end_date"}
	}

	return schema.Query{
		Symbol:     sym,
		Interval:   token,
		StartDate:  start,
		EndDate:    end,
		Sort:       sortOrder,
		Limit:      limit,
		Multiplier: spec.Multiplier,
		Timespan:   spec.Unit,
	}, nil
}

// aggsURL builds the initial aggregates request for one symbol.
func (a *Adapter) aggsURL(q schema.Query, sym, apiKey string) string {
	ticker := sym
	if a.cfg.AssetClass == AssetCrypto {
		ticker = cryptoPrefix + sym
	}
	base := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		a.cfg.BaseURL, ticker, q.Multiplier, q.Timespan,
		q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"))

	v := url.Values{}
	v.Set("sort", string(q.Sort))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("apiKey", apiKey)
	return base + "?" + v.Encode()
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

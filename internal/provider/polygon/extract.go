package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"barprovider/internal/credentials"
	"barprovider/internal/fetcher"
	"barprovider/internal/schema"
)

// aggsResponse is one page of the vendor's aggregates endpoint.
type aggsResponse struct {
	Ticker       string            `json:"ticker"`
	QueryCount   int               `json:"queryCount"`
	ResultsCount int               `json:"resultsCount"`
	Adjusted     bool              `json:"adjusted"`
	Results      []json.RawMessage `json:"results"`
	Status       string            `json:"status"`
	RequestID    string            `json:"request_id"`
	Count        int               `json:"count"`
	NextURL      string            `json:"next_url,omitempty"`
}

// PageLimitError reports a pagination loop that exceeded the configured
// page cap without the vendor ceasing to return continuation tokens.
type PageLimitError struct {
	Symbol string
	Pages  int
}

func (e *PageLimitError) Error() string {
	return fmt.Sprintf("pagination for %s exceeded %d pages", e.Symbol, e.Pages)
}

// Extract retrieves all raw rows for the query. Symbols fetch
// concurrently, one task each, bounded by MaxConcurrency; within a task
// the cursor loop is strictly sequential. A vendor or network error for
// one symbol is a partial failure: it logs a warning and contributes
// zero rows while siblings continue. Rows are concatenated in
// task-completion order.
func (a *Adapter) Extract(ctx context.Context, q schema.Query, creds credentials.Store) ([]fetcher.Row, error) {
	apiKey, err := creds.Get(a.cfg.CredentialName)
	if err != nil {
		return nil, err
	}

	symbols := q.Symbols()
	multi := len(symbols) > 1
	dateOnly := !q.Timespan.Intraday()

	var mu sync.Mutex
	var all []fetcher.Row

	g := new(errgroup.Group)
	g.SetLimit(a.cfg.MaxConcurrency)
	for _, sym := range symbols {
		g.Go(func() error {
			rows, err := a.fetchSymbol(ctx, q, sym, apiKey, multi, dateOnly)
			if err != nil {
				slog.Warn("symbol fetch failed", "vendor", a.Name(), "symbol", sym, "error", err)
				return nil
			}
			if len(rows) == 0 {
				slog.Warn("no data found for symbol", "vendor", a.Name(), "symbol", sym)
				return nil
			}
			mu.Lock()
			all = append(all, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

// fetchSymbol runs the sequential pagination loop for one symbol,
// following next_url continuation links until the vendor stops
// returning them or MaxPages is hit.
func (a *Adapter) fetchSymbol(ctx context.Context, q schema.Query, sym, apiKey string, multi, dateOnly bool) ([]fetcher.Row, error) {
	next := a.aggsURL(q, sym, apiKey)

	var rows []fetcher.Row
	pages := 0
	for next != "" {
		if a.cfg.MaxPages > 0 && pages >= a.cfg.MaxPages {
			return nil, &PageLimitError{Symbol: sym, Pages: pages}
		}
		var page aggsResponse
		if err := a.transport.GetJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		pages++

		for _, raw := range page.Results {
			ts := gjson.GetBytes(raw, "t")
			if !ts.Exists() {
				slog.Debug("row without timestamp", "vendor", a.Name(), "symbol", sym)
				continue
			}
			row := fetcher.Row{Raw: raw, Time: schema.FromUnixMilli(ts.Int(), dateOnly)}
			if multi {
				row.Symbol = sym
			}
			rows = append(rows, row)
		}

		// Continuation links omit the key; re-append it.
		if page.NextURL == "" {
			break
		}
		next = page.NextURL + "&apiKey=" + apiKey
	}
	return rows, nil
}

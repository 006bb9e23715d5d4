package fetcher

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"barprovider/internal/credentials"
	"barprovider/internal/schema"
)

// Row is one raw vendor result row, annotated by the extraction stage.
// Raw keeps the vendor's own field names; the transform stage maps them
// onto the canonical schema.
type Row struct {
	Raw json.RawMessage
	// Time is the normalized bar timestamp (UTC; date-only for
	// day-or-coarser queries).
	Time schema.BarTime
	// Symbol is the originating ticker, set only when the query covered
	// more than one symbol.
	Symbol string
}

// Adapter is the per-vendor implementation of the fetch pipeline.
// Implementations hold their own alias maps and interval vocabulary;
// they never perform I/O outside Extract.
type Adapter interface {
	Name() string
	// NormalizeQuery validates raw params and fills vendor defaults and
	// derived fields. No network side effects.
	NormalizeQuery(p schema.Params) (schema.Query, error)
	// Extract retrieves all raw rows for the query. Per-symbol vendor
	// errors are partial failures: the symbol contributes zero rows and
	// siblings continue. Cross-symbol row order is task-completion
	// order, not chronological.
	Extract(ctx context.Context, q schema.Query, creds credentials.Store) ([]Row, error)
	// Transform maps raw rows onto canonical bars and enforces
	// minimum-viability: an empty result is ErrEmptyData.
	Transform(q schema.Query, rows []Row) ([]schema.Bar, error)
}

// Run composes the three pipeline stages for one logical request.
func Run(ctx context.Context, a Adapter, p schema.Params, creds credentials.Store) ([]schema.Bar, error) {
	log := slog.With("vendor", a.Name(), "request_id", uuid.NewString())

	q, err := a.NormalizeQuery(p)
	if err != nil {
		return nil, err
	}
	log.Debug("query normalized",
		"symbol", q.Symbol,
		"interval", q.Interval,
		"start", q.StartDate.Format("2006-01-02"),
		"end", q.EndDate.Format("2006-01-02"),
	)

	rows, err := a.Extract(ctx, q, creds)
	if err != nil {
		return nil, err
	}
	log.Debug("rows extracted", "rows", len(rows))

	bars, err := a.Transform(q, rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrEmptyData
	}
	log.Info("fetch complete", "symbol", q.Symbol, "bars", len(bars))
	return bars, nil
}

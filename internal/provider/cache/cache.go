package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"barprovider/internal/credentials"
	"barprovider/internal/fetcher"
	"barprovider/internal/schema"
)

// entry stores one cached batch of bars with expiry.
type entry struct {
	expiresAt time.Time
	bars      []schema.Bar
}

// Runner runs the fetch pipeline with a TTL cache keyed by the
// normalized query, coalescing identical concurrent fetches so a burst
// of callers produces a single upstream request.
type Runner struct {
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	sf    singleflight.Group
}

// Fetch returns cached bars when the same normalized query was fetched
// within TTL, otherwise runs the pipeline. Errors are never cached.
func (c *Runner) Fetch(ctx context.Context, a fetcher.Adapter, p schema.Params, creds credentials.Store) ([]schema.Bar, error) {
	if c.TTL <= 0 {
		return fetcher.Run(ctx, a, p, creds)
	}

	// Normalization is pure; running it here gives the cache the same
	// key for equivalent raw inputs ("btc-usd" vs "BTCUSD").
	q, err := a.NormalizeQuery(p)
	if err != nil {
		return nil, err
	}
	key := cacheKey(a.Name(), q)

	now := time.Now()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.bars, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// The flight serves every coalesced caller; detach it from the
		// originator's cancellation so one impatient client cannot fail
		// the whole burst. Context values survive for logging.
		bars, err := fetcher.Run(context.WithoutCancel(ctx), a, p, creds)
		if err != nil {
			return nil, err
		}
		c.store(key, bars)
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]schema.Bar), nil
}

func (c *Runner) store(key string, bars []schema.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: time.Now().Add(c.TTL), bars: bars}

	// best-effort cap: expired first, then arbitrary
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		now := time.Now()
		for k, e := range c.items {
			if k == key {
				continue
			}
			if now.After(e.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				return
			}
		}
		for k := range c.items {
			if k == key {
				continue
			}
			if len(c.items) <= c.MaxItems {
				return
			}
			delete(c.items, k)
		}
	}
}

func cacheKey(vendor string, q schema.Query) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d",
		vendor, q.Symbol, q.Interval,
		q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"),
		q.Sort, q.Limit)
}

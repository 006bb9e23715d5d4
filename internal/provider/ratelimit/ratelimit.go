package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Transport is the GET-and-decode session being gated. It matches
// httpx.Client and polygon.Transport structurally.
type Transport interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// MinInterval wraps a transport and enforces a minimum time between
// requests. Concurrent calls wait until the interval has elapsed since
// the last request, or return early if the context is canceled.
type MinInterval struct {
	T        Transport
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) GetJSON(ctx context.Context, url string, v any) error {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	err := m.T.GetJSON(ctx, url, v)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return err
}

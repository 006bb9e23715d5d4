package fetcher

import (
	"fmt"
	"sort"
	"sync"
)

var (
	regMu    sync.RWMutex
	registry = map[string]Adapter{}
)

// Register makes an adapter available under a vendor identifier
// (e.g. "polygon_crypto"). Registering the same id twice panics;
// adapters are registered once at startup.
func Register(id string, a Adapter) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[id]; dup {
		panic(fmt.Sprintf("fetcher: adapter %q registered twice", id))
	}
	registry[id] = a
}

// Lookup returns the adapter registered under id.
func Lookup(id string) (Adapter, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	a, ok := registry[id]
	return a, ok
}

// Names lists registered vendor identifiers, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

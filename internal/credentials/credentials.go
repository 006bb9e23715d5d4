package credentials

import (
	"fmt"
	"os"
	"strings"
)

// Store maps credential names to API keys. Where the keys come from
// (file, env, secret manager) is the caller's concern.
type Store map[string]string

// MissingError reports a required credential that is absent from the store.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing credential %q", e.Name)
}

// Get returns the named key, or a MissingError when it is absent or blank.
func (s Store) Get(name string) (string, error) {
	if v := strings.TrimSpace(s[name]); v != "" {
		return v, nil
	}
	return "", &MissingError{Name: name}
}

// FromEnv builds a Store by reading each name from the environment,
// matching on the upper-cased form (polygon_api_key -> POLYGON_API_KEY).
func FromEnv(names ...string) Store {
	s := make(Store, len(names))
	for _, n := range names {
		if v := os.Getenv(strings.ToUpper(n)); v != "" {
			s[n] = v
		}
	}
	return s
}

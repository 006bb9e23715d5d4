package fetcher

import (
	"errors"
	"fmt"
)

// ErrEmptyData is the pipeline's terminal failure: the transformed batch
// is empty, whether the vendor returned nothing or every row was
// rejected.
var ErrEmptyData = errors.New("no data found for any requested symbol")

// ValidationError reports an invalid query field combination. It is
// raised before any network call.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // underlying cause (e.g. an interval parse error)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid query: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

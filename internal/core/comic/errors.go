package comic

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName = errors.New("name is empty")
	ErrTraversal = errors.New("name is not a single path segment")
	ErrBadURL    = errors.New("not an absolute http(s) url")
)

// DerivationError reports a naming tree that cannot be turned into tasks.
type DerivationError struct {
	Comic   string
	Episode string
	// Value is the offending name or URL.
	Value string
	Err   error
}

func (e *DerivationError) Error() string {
	switch {
	case e.Episode != "":
		return fmt.Sprintf("comic %q episode %q: %q: %v", e.Comic, e.Episode, e.Value, e.Err)
	case e.Comic != "":
		return fmt.Sprintf("comic %q: %q: %v", e.Comic, e.Value, e.Err)
	default:
		return fmt.Sprintf("%q: %v", e.Value, e.Err)
	}
}

func (e *DerivationError) Unwrap() error { return e.Err }

package kaiku

import (
	"errors"
	"fmt"
)

// ErrProcessorNotFound is returned when a factory does not recognize a
// processor name. The chain or voice manager is left unchanged; the failure
// is fully recoverable.
var ErrProcessorNotFound = errors.New("processor not found")

// ErrNoFactory is returned by structural operations that need a factory when
// none has been bound.
var ErrNoFactory = errors.New("no factory bound")

// NotFoundError wraps ErrProcessorNotFound with the offending name so it
// survives errors.Is checks while still naming the culprit.
func NotFoundError(name string) error {
	return fmt.Errorf("%w: %q", ErrProcessorNotFound, name)
}

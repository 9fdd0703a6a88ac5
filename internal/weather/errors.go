package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable is returned when a source could not be reached,
	// either after exhausting retries or on a non-retryable status.
	ErrUpstreamUnavailable = errors.New("weather upstream unavailable")

	// ErrMalformedResponse is returned when a successful response does not
	// carry the expected hourly series.
	ErrMalformedResponse = errors.New("malformed weather upstream response")
)

// UpstreamError describes a failed fetch against one source
type UpstreamError struct {
	Source   string
	Attempts int
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weather source %q unavailable after %d attempt(s) (last status %d): %v",
			e.Source, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("weather source %q unavailable after %d attempt(s): %v", e.Source, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets callers match any UpstreamError against ErrUpstreamUnavailable
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func malformed(source, format string, args ...interface{}) error {
	return fmt.Errorf("%w from %q: %s", ErrMalformedResponse, source, fmt.Sprintf(format, args...))
}

package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch is returned when retrieval produces no usable match for the
	// input image.
	ErrNoMatch = errors.New("no matching meme found")

	// ErrNoInspiration is returned when the matched meme carries no design
	// inspiration to drive generation.
	ErrNoInspiration = errors.New("matched meme has no design inspiration")

	// ErrIndexUnavailable is returned when the serving index could not be
	// loaded. The failure sticks until the process restarts.
	ErrIndexUnavailable = errors.New("serving index unavailable")
)

// APIError carries an upstream provider failure: which provider, the HTTP
// status it returned and the raw body for diagnosis.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RawBody    string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s API error: status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
	}
}

// AsAPIError unwraps err to an APIError if one is in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

package ai

import "errors"

var (
	// ErrUpstreamTimeout indicates a delegated embedding or stance call
	// exceeded its deadline. Callers recover locally: search falls back
	// to text matching, theory evaluation degrades the item to uncertain.
	ErrUpstreamTimeout = errors.New("upstream AI call timed out")

	// ErrMalformedResponse indicates the model returned output that could
	// not be parsed after repair attempts.
	ErrMalformedResponse = errors.New("malformed model response")
)

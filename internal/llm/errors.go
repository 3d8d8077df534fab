package llm

import "errors"

var (
	// ErrUnknownProvider is returned for names outside the registered set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingCredential is returned when a known provider has no credential.
	ErrMissingCredential = errors.New("missing credential")
)

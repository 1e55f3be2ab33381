package generation

import "errors"

// Common errors returned by provider implementations
var (
	// ErrGenerationFailed is returned when a provider call fails for a general reason
	ErrGenerationFailed = errors.New("provider generation failed")

	// ErrInvalidResponse is returned when a provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient provider error")

	// ErrInvalidConfig is returned when the provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

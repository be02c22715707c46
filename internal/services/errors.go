// Package services defines the business logic for the assistant relay and
// feedback recording. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrEmptyQuery is returned when a chat request contains an empty or
	// whitespace-only query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong is returned when a chat request exceeds the maximum
	// configured query length.
	ErrQueryTooLong = errors.New("query too long")

	// ErrCompletionFailed wraps failures of the completion service: transport
	// errors, non-success statuses, or payloads missing the content field.
	// The caller receives no answer; the failed attempt is still recorded as
	// an exchange row with an error-describing response.
	ErrCompletionFailed = errors.New("completion service failed")

	// ErrInvalidFeedback is returned when a feedback value is outside the
	// allowed set (currently "up" or "down").
	ErrInvalidFeedback = errors.New(`feedback must be "up" or "down"`)

	// ErrRateLimited is returned when a user has exhausted their feedback
	// quota for the current window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrExchangeNotFound indicates that the requested exchange does not
	// exist or is not accessible to the current user.
	ErrExchangeNotFound = errors.New("exchange not found")
)

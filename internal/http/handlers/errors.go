// Package handlers defines the canonical user-facing error messages used
// across all API endpoints.
//
// The wire contract is a bare `{"error": string}` envelope (see response.go),
// so the stable surface clients can branch on is the HTTP status plus these
// message strings. The texts for the chat and feedback endpoints match the
// original service verbatim to keep existing clients working.
package handlers

const (
	// MsgChatFieldsRequired is returned when the chat payload is missing
	// query or userId.
	MsgChatFieldsRequired = "Query and userId are required"

	// MsgFeedbackFieldsRequired is returned when the feedback payload is
	// missing chatId, feedback, or userId.
	MsgFeedbackFieldsRequired = "Chat ID, feedback, and user ID are required"

	// MsgRateLimited is returned with HTTP 429 when the feedback quota for
	// the current window is exhausted.
	MsgRateLimited = "Rate limit exceeded. Please try again later."

	// MsgInternal is the generic 500 message; details stay in the logs.
	MsgInternal = "Internal server error"

	// MsgRouteNotFound and MsgMethodNotAllowed are the router fallbacks.
	MsgRouteNotFound    = "route not found"
	MsgMethodNotAllowed = "method not allowed"
)

// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Error responses follow the wire contract of the original edge
// functions: a JSON object whose "error" field carries a human-readable
// message. A request_id field is added for log correlation.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "error": "Rate limit exceeded. Please try again later.",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyshare/go-assist-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Human-readable message (safe to show to users)
	Error string `json:"error" example:"Internal server error"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// fail aborts the request with a structured error and logs server-side errors.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware before the JSON body is written.
func fail(c *gin.Context, status int, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		Error:     msg,
		RequestID: reqID,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, msg string) { fail(c, status, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

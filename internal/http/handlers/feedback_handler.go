// Feedback HTTP handlers.
//
// This file exposes the REST endpoint for rating prior exchanges:
//   - POST /chat/feedback  (submit a thumbs-up/down rating)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate domain/service errors into HTTP
// results. Feedback values are constrained to "up" and "down"; submissions
// are throttled per user by the service layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyshare/go-assist-backend/internal/services"
)

// SubmitFeedbackRequest is the JSON payload for rating an exchange.
//
// Feedback must be one of:
//   - "up"   : positive rating
//   - "down" : negative rating
//
// ChatID references a prior exchange but is deliberately not validated for
// existence; any non-empty string is accepted.
type SubmitFeedbackRequest struct {
	// ChatID is the id returned by the chat endpoint.
	ChatID string `json:"chatId" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Feedback is the rating signal: "up" or "down".
	Feedback string `json:"feedback" binding:"required" example:"up"`
	// UserID identifies the rating submitter.
	UserID string `json:"userId" binding:"required" example:"user123"`
}

// SubmitFeedbackResponse acknowledges an accepted rating.
type SubmitFeedbackResponse struct {
	Success bool `json:"success"`
}

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Rate an exchange
// @Description Records an "up" or "down" rating for a prior exchange. Submissions are rate limited per user.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SubmitFeedbackRequest  true  "Feedback payload"
//
// @Success     200  {object} handlers.SubmitFeedbackResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid fields"
// @Failure     429  {object} handlers.ErrorResponse "Rate limit exceeded"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /chat/feedback [post]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, MsgFeedbackFieldsRequired)
		return
	}

	err := h.fbSvc.Submit(c.Request.Context(), req.UserID, req.ChatID, req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFeedback):
			fail(c, http.StatusBadRequest, services.ErrInvalidFeedback.Error())
		case errors.Is(err, services.ErrRateLimited):
			fail(c, http.StatusTooManyRequests, MsgRateLimited)
		default:
			fail(c, http.StatusInternalServerError, MsgInternal)
		}
		return
	}

	ok(c, http.StatusOK, SubmitFeedbackResponse{Success: true})
}

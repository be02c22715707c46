// Chat HTTP handlers.
//
// This file exposes the REST endpoints for the assistant relay:
//   - POST /chat          (ask a question, cache-or-compute)
//   - GET  /chat/history  (list prior exchanges, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/domain"
	"github.com/studyshare/go-assist-backend/internal/http/middleware"
	"github.com/studyshare/go-assist-backend/internal/repo"
	"github.com/studyshare/go-assist-backend/internal/services"
	"github.com/studyshare/go-assist-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService defines the relay operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// Ask answers a question via the cache-or-compute flow and records the
	// exchange. idemKey may be empty.
	Ask(ctx context.Context, userID, query, idemKey string) (*domain.ChatExchange, error)
	// Replay returns the exchange persisted under a prior Idempotency-Key.
	Replay(ctx context.Context, userID, idemKey string) (*domain.ChatExchange, error)
	// ListPage returns a page of the user's exchanges and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatExchange, int64, error)
}

// FeedbackService defines operations to capture user feedback on exchanges.
type FeedbackService interface {
	// Submit records an "up" or "down" rating for chatID by userID.
	Submit(ctx context.Context, userID, chatID, feedback string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for chat and feedback. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	chatSvc ChatService
	fbSvc   FeedbackService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatService, fbSvc FeedbackService) *Handlers {
	return &Handlers{chatSvc: chatSvc, fbSvc: fbSvc}
}

//
// DTOs
//

// AskRequest is the JSON payload for asking the assistant a question.
// Both fields are required.
type AskRequest struct {
	// Query is the raw question text.
	Query string `json:"query" binding:"required" example:"What is Big O notation?"`
	// UserID identifies the asking user.
	UserID string `json:"userId" binding:"required" example:"user123"`
}

// AskResponse carries the answer and the id of the recorded exchange.
// ChatID is null when the audit insert failed (the answer is still valid).
type AskResponse struct {
	Response string  `json:"response"`
	ChatID   *string `json:"chatId"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// HistoryResponse wraps a page of exchanges and pagination information.
type HistoryResponse struct {
	Exchanges  []domain.ChatExchange `json:"exchanges"`
	Pagination Pagination            `json:"pagination"`
}

//
// Helpers
//

// historyUserID resolves the user whose history is requested: the userId
// query parameter first, then the X-User-ID header (tests use it), finally a
// demo fallback.
func historyUserID(c *gin.Context) string {
	if q := strings.TrimSpace(c.Query("userId")); q != "" {
		return q
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h
	}
	return "demo-user"
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// Ask godoc
// @ID          askAssistant
// @Summary     Ask the study assistant
// @Description Returns a cached or freshly generated answer and records the exchange.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Safe-retry key"
// @Param       body             body    handlers.AskRequest  true  "Question payload"
//
// @Success     200  {object}  handlers.AskResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query or userId"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, MsgChatFieldsRequired)
		return
	}

	ctx := c.Request.Context()
	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Serve a previously recorded result for replayed keys without touching
	// the completion service again.
	if idemKey != "" && middleware.IsReplay(c) {
		if ex, err := h.chatSvc.Replay(ctx, req.UserID, idemKey); err == nil {
			ok(c, http.StatusOK, AskResponse{Response: ex.Response, ChatID: &ex.ID})
			return
		}
		// Lookup miss: fall through and compute normally.
	}

	ex, err := h.chatSvc.Ask(ctx, req.UserID, req.Query, idemKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery):
			fail(c, http.StatusBadRequest, MsgChatFieldsRequired)
		case errors.Is(err, services.ErrQueryTooLong):
			fail(c, http.StatusBadRequest, services.ErrQueryTooLong.Error())
		default:
			fail(c, http.StatusInternalServerError, MsgInternal)
		}
		return
	}

	resp := AskResponse{Response: ex.Response}
	if ex.ID != "" {
		resp.ChatID = &ex.ID
	}
	ok(c, http.StatusOK, resp)
}

// History godoc
// @ID          chatHistory
// @Summary     List prior exchanges (paginated)
// @Description Returns a page of the user's exchanges, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       userId         query   string  false "User ID"                      example(user123)
// @Param       X-User-ID      header  string  false "User ID (fallback)"           example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.HistoryResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chat/history [get]
func (h *Handlers) History(c *gin.Context) {
	ctx := c.Request.Context()
	uid := historyUserID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.chatSvc.(*services.ChatService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ExchangesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"history:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.chatSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, MsgInternal)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := HistoryResponse{
		Exchanges: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

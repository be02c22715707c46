package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyshare/go-assist-backend/internal/domain"
	"github.com/studyshare/go-assist-backend/internal/http/middleware"
	"github.com/studyshare/go-assist-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeChatService scripts the service layer for handler tests.
type fakeChatService struct {
	askCalls    int
	askExchange *domain.ChatExchange
	askErr      error

	replayExchange *domain.ChatExchange
	replayErr      error

	listItems []domain.ChatExchange
	listTotal int64
	listErr   error
}

func (f *fakeChatService) Ask(ctx context.Context, userID, query, idemKey string) (*domain.ChatExchange, error) {
	f.askCalls++
	return f.askExchange, f.askErr
}

func (f *fakeChatService) Replay(ctx context.Context, userID, idemKey string) (*domain.ChatExchange, error) {
	return f.replayExchange, f.replayErr
}

func (f *fakeChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatExchange, int64, error) {
	return f.listItems, f.listTotal, f.listErr
}

type fakeFeedbackService struct {
	calls int
	err   error

	gotUserID   string
	gotChatID   string
	gotFeedback string
}

func (f *fakeFeedbackService) Submit(ctx context.Context, userID, chatID, feedback string) error {
	f.calls++
	f.gotUserID, f.gotChatID, f.gotFeedback = userID, chatID, feedback
	return f.err
}

func newChatRouter(cs ChatService, fs FeedbackService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	h := New(cs, fs)
	r.POST("/chat", h.Ask)
	r.GET("/chat/history", h.History)
	r.POST("/chat/feedback", h.SubmitFeedback)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAsk_MissingFields(t *testing.T) {
	cs := &fakeChatService{}
	r := newChatRouter(cs, &fakeFeedbackService{})

	for _, body := range []string{
		`{}`,
		`{"query":"hello"}`,
		`{"userId":"u1"}`,
		`not json`,
	} {
		w := doJSON(t, r, http.MethodPost, "/chat", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != MsgChatFieldsRequired {
			t.Fatalf("error = %q, want %q", resp.Error, MsgChatFieldsRequired)
		}
	}
	if cs.askCalls != 0 {
		t.Fatalf("service called %d times for invalid payloads", cs.askCalls)
	}
}

func TestAsk_Success(t *testing.T) {
	cs := &fakeChatService{askExchange: &domain.ChatExchange{ID: "ex-1", Response: "hi"}}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"hello","userId":"u1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp AskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "hi" || resp.ChatID == nil || *resp.ChatID != "ex-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAsk_NullChatIDWhenInsertFailed(t *testing.T) {
	// Service signals a lost audit row with an empty exchange ID.
	cs := &fakeChatService{askExchange: &domain.ChatExchange{ID: "", Response: "hi"}}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"hello","userId":"u1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"chatId":null`) {
		t.Fatalf("expected null chatId, got %s", w.Body.String())
	}
}

func TestAsk_ServiceErrors(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{services.ErrEmptyQuery, http.StatusBadRequest, MsgChatFieldsRequired},
		{services.ErrQueryTooLong, http.StatusBadRequest, services.ErrQueryTooLong.Error()},
		{fmt.Errorf("%w: boom", services.ErrCompletionFailed), http.StatusInternalServerError, MsgInternal},
	}
	for _, tc := range cases {
		cs := &fakeChatService{askErr: tc.err}
		r := newChatRouter(cs, &fakeFeedbackService{})

		w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"q","userId":"u1"}`, nil)
		if w.Code != tc.wantStatus {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.wantStatus)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Error != tc.wantMsg {
			t.Fatalf("%v: error = %q, want %q", tc.err, resp.Error, tc.wantMsg)
		}
	}
}

func TestAsk_InternalErrorHidesDetails(t *testing.T) {
	cs := &fakeChatService{askErr: fmt.Errorf("dial tcp 10.0.0.1: connection refused")}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"q","userId":"u1"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.1") {
		t.Fatalf("internal details leaked: %s", w.Body.String())
	}
}

func TestAsk_ReplayServedWithoutAsk(t *testing.T) {
	cs := &fakeChatService{
		replayExchange: &domain.ChatExchange{ID: "ex-old", Response: "earlier answer"},
		askExchange:    &domain.ChatExchange{ID: "ex-new", Response: "new answer"},
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	// Lookup always confirms the key so the handler takes the replay path.
	r.Use(middleware.IdempotencyValidator(func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		return true, nil
	}))
	h := New(cs, &fakeFeedbackService{})
	r.POST("/chat", h.Ask)

	w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"q","userId":"u1"}`, map[string]string{
		middleware.HeaderIdempotencyKey: "retry-key-001",
		"X-User-ID":                     "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cs.askCalls != 0 {
		t.Fatalf("Ask called %d times on replay", cs.askCalls)
	}
	if !strings.Contains(w.Body.String(), "earlier answer") {
		t.Fatalf("expected replayed answer, got %s", w.Body.String())
	}
}

func TestAsk_ReplayMissFallsThrough(t *testing.T) {
	cs := &fakeChatService{
		replayErr:   services.ErrExchangeNotFound,
		askExchange: &domain.ChatExchange{ID: "ex-new", Response: "fresh"},
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
		return true, nil
	}))
	h := New(cs, &fakeFeedbackService{})
	r.POST("/chat", h.Ask)

	w := doJSON(t, r, http.MethodPost, "/chat", `{"query":"q","userId":"u1"}`, map[string]string{
		middleware.HeaderIdempotencyKey: "retry-key-002",
		"X-User-ID":                     "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cs.askCalls != 1 {
		t.Fatalf("Ask calls = %d, want 1 after replay miss", cs.askCalls)
	}
}

func TestHistory_DefaultsAndShape(t *testing.T) {
	cs := &fakeChatService{
		listItems: []domain.ChatExchange{{ID: "e1", UserID: "u1", Query: "q", Response: "a"}},
		listTotal: 41,
	}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodGet, "/chat/history?userId=u1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Exchanges) != 1 || resp.Exchanges[0].ID != "e1" {
		t.Fatalf("exchanges: %+v", resp.Exchanges)
	}
	p := resp.Pagination
	if p.Page != 1 || p.PageSize != 20 || p.Total != 41 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination: %+v", p)
	}
}

func TestHistory_ClampsPagination(t *testing.T) {
	cs := &fakeChatService{listItems: []domain.ChatExchange{}, listTotal: 0}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodGet, "/chat/history?page=-3&page_size=9999", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Page != 1 || resp.Pagination.PageSize != 100 {
		t.Fatalf("pagination not clamped: %+v", resp.Pagination)
	}
}

func TestHistory_ServiceError(t *testing.T) {
	cs := &fakeChatService{listErr: fmt.Errorf("db gone")}
	r := newChatRouter(cs, &fakeFeedbackService{})

	w := doJSON(t, r, http.MethodGet, "/chat/history", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), MsgInternal) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

// Package services – ChatService
//
// This file implements the ChatService, the cache-or-compute relay at the
// heart of the assistant backend. It validates and normalizes incoming
// questions, consults the answer cache, falls back to the completion service
// on a miss, and records every exchange — successful or not — in the
// chat_exchanges audit table.
//
// Persistence here is deliberately best-effort: a chat answer has value to
// the user independent of whether it was logged, so cache-write and
// row-insert failures are logged and swallowed rather than surfaced. Only
// failures that prevent producing an answer at all (completion-service
// errors) propagate to the caller.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// user identifiers and cache-hit markers.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/domain"
	"github.com/studyshare/go-assist-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// systemPrompt is the fixed system instruction sent with every
	// completion call.
	systemPrompt = "You are a helpful study and placement assistant. Answer questions about academics, career guidance, interview preparation, and study strategies. Keep responses concise and helpful."

	// cacheKeyPrefix namespaces answer-cache entries so they cannot collide
	// with rate-limit counters or other cache uses.
	cacheKeyPrefix = "faq:"

	// errResponsePrefix tags failure-path exchange rows so downstream
	// consumers can tell an error string from a real answer.
	errResponsePrefix = "Error: "
)

// Cache is the key-value contract the services need from the external cache
// store. Implementations must treat a missing key as (value="", found=false)
// rather than an error. A nil Cache means the collaborator is not configured
// and callers skip caching entirely.
type Cache interface {
	// Get returns the value stored under key, with found=false on absence.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key with the given expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr increments the counter under key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the time-to-live of key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Completer is the completion-service contract: one system instruction plus
// one user turn in, generated text out. Single-shot, no streaming.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatService answers user questions via the cache-or-compute flow and owns
// the lifecycle of chat_exchanges rows.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache is the answer cache; nil disables caching (degraded mode).
	Cache Cache
	// LLM is the completion-service client.
	LLM Completer

	// CacheTTL is the answer-cache expiry.
	CacheTTL time.Duration
	// CallTimeout bounds each completion call.
	CallTimeout time.Duration
	// IdempotencyTTL is how long a recorded Idempotency-Key stays valid.
	IdempotencyTTL time.Duration

	// MaxQueryRunes caps accepted questions by rune length.
	MaxQueryRunes int
	// TopicMaxLen caps generated topic labels by rune length.
	TopicMaxLen int
	// TopicLocale selects the casing rules for topic generation.
	TopicLocale language.Tag
}

// NewChatService constructs a ChatService with sane defaults. cache may be
// nil when Redis is not configured.
func NewChatService(db *gorm.DB, cache Cache, llm Completer) *ChatService {
	return &ChatService{
		DB:             db,
		Cache:          cache,
		LLM:            llm,
		CacheTTL:       24 * time.Hour,
		CallTimeout:    30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
		MaxQueryRunes:  2000,
		TopicMaxLen:    80,
		TopicLocale:    language.English,
	}
}

// Ask runs the relay flow for one question:
//
//  1. Validate the query; the lowercased, trimmed form is the cache key
//     only, the raw form is what the model sees and what gets stored.
//  2. Cache hit short-circuits the completion call.
//  3. Cache miss invokes the completion service once, under CallTimeout;
//     a fresh answer is written back to the cache (best effort).
//  4. One exchange row is inserted regardless of outcome. On completion
//     failure the row's response is an "Error: ..." string and the error is
//     returned wrapped in ErrCompletionFailed; on insert failure the answer
//     is still returned, with an empty exchange ID.
//
// When idemKey is non-empty and the exchange was persisted, an idempotency
// record is stored so retries with the same key can be served via Replay.
func (s *ChatService) Ask(ctx context.Context, userID, query, idemKey string) (*domain.ChatExchange, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}
	if s.MaxQueryRunes > 0 && utf8.RuneCountInString(trimmed) > s.MaxQueryRunes {
		return nil, ErrQueryTooLong
	}

	// Only the cache key is normalized. The model and the audit row both see
	// the query exactly as submitted.
	key := cacheKeyPrefix + strings.ToLower(trimmed)

	var response string
	var hit bool
	if s.Cache != nil {
		v, found, err := s.Cache.Get(ctx, key)
		if err != nil {
			// Cache unreachable: proceed without it.
			log.Warn().Err(err).Str("user_id", userID).Msg("answer cache read failed")
		} else if found {
			response, hit = v, true
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	if !hit {
		callCtx := ctx
		if s.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.CallTimeout)
			defer cancel()
		}
		answer, err := s.LLM.Complete(callCtx, systemPrompt, query)
		if err != nil {
			s.recordFailure(ctx, userID, query, err)
			return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
		}
		response = answer

		if s.Cache != nil {
			if err := s.Cache.Set(ctx, key, response, s.CacheTTL); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("answer cache write failed")
			}
		}
	}

	ex, err := repo.CreateExchange(ctx, s.DB, userID, query, response, s.generateTopic(query))
	if err != nil {
		// The user still gets their answer; only the audit row is lost.
		log.Error().Err(err).Str("user_id", userID).Msg("exchange insert failed")
		return &domain.ChatExchange{
			UserID:   userID,
			Query:    query,
			Response: response,
			Topic:    s.generateTopic(query),
		}, nil
	}

	if idemKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, userID, idemKey, ex.ID, 200, s.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Warn().Err(err).Str("user_id", userID).Msg("idempotency record insert failed")
		}
	}

	return ex, nil
}

// Replay returns the exchange originally produced under the given
// Idempotency-Key, or ErrExchangeNotFound if the key is unknown, expired, or
// its exchange is gone.
func (s *ChatService) Replay(ctx context.Context, userID, idemKey string) (*domain.ChatExchange, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, idemKey, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	ex, err := repo.GetExchange(ctx, s.DB, rec.ExchangeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		return nil, err
	}
	return ex, nil
}

// ListPage returns a page of the user's exchanges, newest first, along with
// the total count for pagination metadata.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatExchange, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountExchanges(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatExchange{}, 0, nil
	}

	items, err := repo.ListExchangesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// recordFailure writes the audit row for a failed completion attempt. Failure
// here is swallowed: the caller is already on the error path.
func (s *ChatService) recordFailure(ctx context.Context, userID, query string, cause error) {
	response := errResponsePrefix + cause.Error()
	if _, err := repo.CreateExchange(ctx, s.DB, userID, query, response, s.generateTopic(query)); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to log chat exchange error")
	}
}

// generateTopic derives a concise display label from the query: up to eight
// non-stopword tokens, title-cased, clipped to TopicMaxLen runes.
func (s *ChatService) generateTopic(query string) string {
	toks := topicWordRE.FindAllString(strings.ToLower(strings.TrimSpace(query)), -1)
	if len(toks) == 0 {
		return ""
	}

	locale := s.TopicLocale
	if locale == language.Und {
		locale = language.English
	}
	caser := cases.Title(locale)

	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := topicStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}

	topic := strings.Join(out, " ")
	max := s.TopicMaxLen
	if max <= 0 {
		max = 80
	}
	if utf8.RuneCountInString(topic) > max {
		topic = string([]rune(topic)[:max])
	}
	return topic
}

// topicWordRE tokenizes queries into word-ish runs for topic generation.
var topicWordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// topicStopWords are filler words dropped from generated topics.
var topicStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "how": {}, "why": {},
	"when": {}, "where": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "for": {}, "with": {}, "about": {}, "me": {}, "my": {},
	"please": {}, "tell": {}, "explain": {},
}

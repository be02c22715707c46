// Package services – FeedbackService
//
// This file implements the FeedbackService, which records thumbs-up/down
// ratings on prior exchanges and throttles submissions per user. The rate
// limiter is a Redis counter with a rolling window; when Redis is not
// configured or unreachable the check fails open and all submissions are
// allowed — throttling here protects against feedback spam, it is not an
// integrity guarantee.
//
// Unlike ChatService, persistence failures are hard errors: a feedback
// submission's only value IS being recorded, so there is nothing useful to
// return if the insert fails.
package services

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/domain"
	"github.com/studyshare/go-assist-backend/internal/repo"
)

// rateLimitKeyPrefix namespaces feedback rate-limit counters in the cache
// store, keyed per operation type and user.
const rateLimitKeyPrefix = "rate_limit:chat_feedback:"

// FeedbackService implements the use-cases around exchange feedback.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
	// Cache holds the rate-limit counters; nil disables rate limiting.
	Cache Cache

	// Quota is the number of accepted submissions per user per window.
	Quota int
	// Window is the rolling rate-limit window.
	Window time.Duration
}

// NewFeedbackService constructs a FeedbackService with the default quota of
// 10 submissions per rolling hour. cache may be nil.
func NewFeedbackService(db *gorm.DB, cache Cache) *FeedbackService {
	return &FeedbackService{
		DB:     db,
		Cache:  cache,
		Quota:  10,
		Window: time.Hour,
	}
}

// Submit records a feedback value for chatID on behalf of userID.
//
// Semantics and validation:
//   - feedback must be exactly "up" or "down"; otherwise ErrInvalidFeedback.
//   - chatID is accepted as-is; it is NOT checked against chat_exchanges.
//   - The per-user quota is enforced first; exhausted quota yields
//     ErrRateLimited and no row is written.
//   - The insert failure is returned to the caller unwrapped (hard error).
func (s *FeedbackService) Submit(ctx context.Context, userID, chatID, feedback string) error {
	if feedback != domain.FeedbackUp && feedback != domain.FeedbackDown {
		return ErrInvalidFeedback
	}

	if !s.allow(ctx, userID) {
		return ErrRateLimited
	}

	return repo.CreateFeedback(ctx, s.DB, chatID, userID, feedback)
}

// allow runs the rate-limit check for userID and consumes one slot.
//
// This is a best-effort limiter: the read and the increment are two separate
// round trips with no atomic compare-and-increment, so concurrent
// submissions from the same user can both pass the check before either
// increments and overshoot the quota slightly. Acceptable for low-stakes
// feedback throttling.
//
// The check fails open: when the cache is not configured or any round trip
// errors, the submission is allowed.
func (s *FeedbackService) allow(ctx context.Context, userID string) bool {
	if s.Cache == nil {
		return true
	}

	key := rateLimitKeyPrefix + userID

	v, found, err := s.Cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("rate limit read failed, allowing")
		return true
	}
	if found {
		if n, perr := strconv.ParseInt(v, 10, 64); perr == nil && n >= int64(s.Quota) {
			return false
		}
	}

	if _, err := s.Cache.Incr(ctx, key); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("rate limit increment failed")
		return true
	}

	// First submission in a fresh window starts the expiry clock.
	if !found {
		if err := s.Cache.Expire(ctx, key, s.Window); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("rate limit expire failed")
		}
	}

	return true
}

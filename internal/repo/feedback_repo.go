// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// FeedbackRecord model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules (value validation, rate limiting)
// to the services package.
//
// Note that chat_id is stored as submitted. The feedback endpoint does not
// verify that it references an existing chat_exchanges row, and the schema
// carries no foreign key, so any string the service accepts is persisted.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/domain"
)

// CreateFeedback inserts a feedback row for the given exchange and user.
//
// Feedback must be "up" or "down". Validation is expected to be enforced at
// higher layers (handlers/services) and/or via the DB check constraint.
//
// On success, it returns nil. On failure, it returns a DB error. Unlike the
// exchange insert, callers treat a failure here as fatal for the request: a
// feedback submission's only value is being recorded.
func CreateFeedback(ctx context.Context, db *gorm.DB, chatID, userID, feedback string) error {
	fb := &domain.FeedbackRecord{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		UserID:    userID,
		Feedback:  feedback,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(fb).Error
}

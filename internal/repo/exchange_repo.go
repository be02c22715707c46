// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatExchange model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an exchange is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyshare/go-assist-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateExchange inserts a ChatExchange row for userID recording the raw
// query, the response text (an answer or an "Error: ..." string), and the
// display topic. The id is a randomly generated UUID and CreatedAt is UTC.
//
// On success, it returns the persisted row. On failure, it returns a DB error.
func CreateExchange(ctx context.Context, db *gorm.DB, userID, query, response, topic string) (*domain.ChatExchange, error) {
	ex := &domain.ChatExchange{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Response:  response,
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ex).Error; err != nil {
		return nil, err
	}
	return ex, nil
}

// GetExchange fetches a single exchange by its ID and owner (userID). If the
// record does not exist, it returns ErrNotFound.
func GetExchange(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatExchange, error) {
	var ex domain.ChatExchange
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&ex).Error
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// CountExchanges returns the total number of exchanges owned by userID.
func CountExchanges(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatExchange{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListExchangesPage returns a paginated slice of exchanges for userID,
// ordered by creation time descending (most recent first). Use
// CountExchanges to obtain the total for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListExchangesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatExchange, error) {
	var out []domain.ChatExchange
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

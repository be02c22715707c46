// Package domain defines the persistence models for chat exchanges and
// feedback records. These types are mapped with GORM and form the core data
// layer of the assistant backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Feedback values accepted on a chat exchange.
const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// ChatExchange represents one question/answer round trip with the assistant.
// A row is written for every request, including failed ones: on the failure
// path Response holds an "Error: ..." string instead of an answer, so the
// table doubles as an audit trail. Rows are append-only from the service's
// point of view.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the asking user; indexed for history retrieval.
//   - Query: the raw question as submitted (not the normalized cache key).
//   - Response: the answer text, or an error-describing string on failure.
//   - Topic: short auto-generated label derived from the query, used by
//     history rendering.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type ChatExchange struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_exchanges"`
	Query     string         `json:"query"      gorm:"type:text;not null"`
	Response  string         `json:"response"   gorm:"type:text;not null"`
	Topic     string         `json:"topic"      gorm:"type:varchar(80)"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_exchanges,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for ChatExchange.
func (ChatExchange) TableName() string { return "chat_exchanges" }

// FeedbackRecord represents a thumbs-up/down rating a user left on a prior
// exchange. ChatID deliberately carries no foreign-key constraint: the rating
// references whatever id the client submitted, matching the permissive
// contract of the feedback endpoint.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatID: id of the rated exchange (indexed, not validated for existence).
//   - UserID: identifier of the rating submitter.
//   - Feedback: "up" or "down" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type FeedbackRecord struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatID    string         `json:"chat_id"    gorm:"type:varchar(64);not null;index"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	Feedback  string         `json:"feedback"   gorm:"type:varchar(8);not null;check:feedback IN ('up','down')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for FeedbackRecord.
func (FeedbackRecord) TableName() string { return "chat_feedback" }

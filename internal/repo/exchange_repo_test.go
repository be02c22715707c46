package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyshare/go-assist-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateExchange_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	ex, err := CreateExchange(context.Background(), db, "u1", "q", "a", "Topic")
	if err == nil || ex != nil {
		t.Fatalf("expected error creating without table, got ex=%v err=%v", ex, err)
	}
}

func TestCreateExchange_Success_PersistsAndSetsFields(t *testing.T) {
	db := newRepoDB(t, &domain.ChatExchange{})

	start := time.Now().UTC().Add(-time.Minute)
	ex, err := CreateExchange(context.Background(), db, "u1", "What is Big O?", "It measures growth.", "Big O")
	if err != nil {
		t.Fatalf("CreateExchange: %v", err)
	}
	if ex.ID == "" || ex.UserID != "u1" || ex.Query != "What is Big O?" || ex.Response != "It measures growth." {
		t.Fatalf("unexpected exchange fields: %+v", ex)
	}
	if ex.Topic != "Big O" {
		t.Fatalf("topic = %q", ex.Topic)
	}
	if ex.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt not set: %v", ex.CreatedAt)
	}

	var got domain.ChatExchange
	if err := db.First(&got, "id = ?", ex.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Response != ex.Response {
		t.Fatalf("persisted response mismatch: %q vs %q", got.Response, ex.Response)
	}
}

func TestGetExchange_ScopesByOwner(t *testing.T) {
	db := newRepoDB(t, &domain.ChatExchange{})

	ex, err := CreateExchange(context.Background(), db, "owner", "q", "a", "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetExchange(context.Background(), db, ex.ID, "owner"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := GetExchange(context.Background(), db, ex.ID, "intruder"); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound for other user, got %v", err)
	}
}

func TestCountAndListExchangesPage(t *testing.T) {
	db := newRepoDB(t, &domain.ChatExchange{})
	ctx := context.Background()

	// Seed with explicit timestamps so the sort order is deterministic.
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ex := &domain.ChatExchange{
			ID:        uuid.NewString(),
			UserID:    "u1",
			Query:     fmt.Sprintf("q%d", i),
			Response:  "a",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(ex).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	// Noise from another user.
	if _, err := CreateExchange(ctx, db, "u2", "other", "a", ""); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	total, err := CountExchanges(ctx, db, "u1")
	if err != nil || total != 5 {
		t.Fatalf("CountExchanges = %d, %v", total, err)
	}

	page, err := ListExchangesPage(ctx, db, "u1", 0, 2)
	if err != nil {
		t.Fatalf("ListExchangesPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d", len(page))
	}
	// Newest first.
	if page[0].Query != "q4" || page[1].Query != "q3" {
		t.Fatalf("unexpected order: %q, %q", page[0].Query, page[1].Query)
	}

	tail, err := ListExchangesPage(ctx, db, "u1", 4, 2)
	if err != nil || len(tail) != 1 || tail[0].Query != "q0" {
		t.Fatalf("tail page wrong: %+v err=%v", tail, err)
	}
}

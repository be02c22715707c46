package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studyshare/go-assist-backend/internal/domain"
)

func TestIdempotency_CreateAndGet(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "key-123456", "ex-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ExchangeID != "ex-1" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("expiry not in the future: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "key-123456", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ExchangeID != "ex-1" {
		t.Fatalf("exchange id = %q", got.ExchangeID)
	}
}

func TestIdempotency_ScopedPerUser(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "shared-key-1", "ex-1", 200, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Same key under a different user is a distinct record, not a duplicate.
	if _, err := CreateIdempotency(ctx, db, "u2", "shared-key-1", "ex-2", 200, time.Hour); err != nil {
		t.Fatalf("expected separate users to coexist, got %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "u3", "shared-key-1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unrelated user, got %v", err)
	}
}

func TestIdempotency_DuplicateKey(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "dup-key-01", "ex-1", 200, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "dup-key-01", "ex-2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_ExpiredNotReturned(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "short-key-1", "ex-1", 200, time.Millisecond); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "u1", "short-key-1", time.Now().UTC().Add(time.Second)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to be invisible, got %v", err)
	}
}

func TestIdempotency_EmptyKey(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	if _, err := GetIdempotency(context.Background(), db, "u1", "  ", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank key, got %v", err)
	}
}

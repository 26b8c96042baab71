package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shortlink/internal/types"
)

// testBackendContract checks the guarantees the shortener relies on. Every
// backend test runs it against a fresh, empty store.
func testBackendContract(t *testing.T, store Backend) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)
	owner := "owner-1"

	link := &types.ShortLink{
		Code:      "abc123",
		TargetURL: "https://example.com",
		ExpiresAt: &expires,
		OwnerID:   &owner,
		CreatedAt: created,
	}

	inserted, err := store.InsertIfAbsent(ctx, link)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to succeed")
	}

	dup := &types.ShortLink{Code: "abc123", TargetURL: "https://evil.example", CreatedAt: created}
	inserted, err = store.InsertIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to be rejected")
	}

	got, err := store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected link, got nil")
	}
	if got.TargetURL != "https://example.com" {
		t.Fatalf("duplicate insert overwrote target: %q", got.TargetURL)
	}
	if got.ClickCount != 0 || got.LastAccessedAt != nil {
		t.Fatalf("expected fresh counters, got %d clicks, last access %v", got.ClickCount, got.LastAccessedAt)
	}
	if got.OwnerID == nil || *got.OwnerID != owner {
		t.Fatalf("expected owner %q, got %v", owner, got.OwnerID)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry %s, got %v", expires, got.ExpiresAt)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %s, got %s", created, got.CreatedAt)
	}

	upper := &types.ShortLink{Code: "ABC123", TargetURL: "https://upper.example", CreatedAt: created}
	inserted, err = store.InsertIfAbsent(ctx, upper)
	if err != nil {
		t.Fatalf("insert differing case: %v", err)
	}
	if !inserted {
		t.Fatalf("codes differing only in case must not collide")
	}
	got, err = store.Get(ctx, "ABC123")
	if err != nil || got == nil || got.TargetURL != "https://upper.example" {
		t.Fatalf("expected ABC123 to resolve to its own target, got %+v, %v", got, err)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing code, got %v, %v", missing, err)
	}
	missing, err = store.IncrementAndTouch(ctx, "nope", created)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil when touching missing code, got %v, %v", missing, err)
	}

	touched := created.Add(time.Minute)
	updated, err := store.IncrementAndTouch(ctx, "abc123", touched)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if updated.ClickCount != 1 {
		t.Fatalf("expected 1 click, got %d", updated.ClickCount)
	}
	if updated.LastAccessedAt == nil || !updated.LastAccessedAt.Equal(touched) {
		t.Fatalf("expected last access %s, got %v", touched, updated.LastAccessedAt)
	}
	if updated.TargetURL != "https://example.com" {
		t.Fatalf("unexpected target after increment: %q", updated.TargetURL)
	}

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementAndTouch(ctx, "abc123", touched); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent increment: %v", err)
	}

	got, err = store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get after increments: %v", err)
	}
	if got.ClickCount != workers+1 {
		t.Fatalf("expected %d clicks, got %d", workers+1, got.ClickCount)
	}

	var winners int
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.InsertIfAbsent(ctx, &types.ShortLink{
				Code:      "race",
				TargetURL: fmt.Sprintf("https://example.com/%d", i),
				CreatedAt: created,
			})
			if err != nil {
				t.Errorf("concurrent insert: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner for the same code, got %d", winners)
	}
}

package media

import (
	"context"
	"testing"
	"time"
)

func TestCleanerDeletesEnqueuedAssets(t *testing.T) {
	store := newFakeStore()
	cleaner := NewCleaner(store, CleanerConfig{QueueSize: 8, Workers: 2}, nil)

	keys := []string{"videos/a.mp4", "thumbnails/a.jpg", "avatars/b.png"}
	for _, key := range keys {
		if err := cleaner.Enqueue(context.Background(), key); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != len(keys) {
		t.Fatalf("expected %d deletions, got %d: %v", len(keys), len(store.deleted), store.deleted)
	}
}

func TestCleanerIgnoresEmptyKeys(t *testing.T) {
	store := newFakeStore()
	cleaner := NewCleaner(store, CleanerConfig{}, nil)

	if err := cleaner.Enqueue(context.Background(), ""); err != nil {
		t.Fatalf("enqueue empty key: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if len(store.deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", store.deleted)
	}
}

func TestCleanerRejectsEnqueueAfterShutdown(t *testing.T) {
	cleaner := NewCleaner(newFakeStore(), CleanerConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if err := cleaner.Enqueue(context.Background(), "videos/late.mp4"); err == nil {
		t.Fatal("expected error enqueueing after shutdown")
	}
}

func TestCleanerShutdownIsIdempotent(t *testing.T) {
	cleaner := NewCleaner(newFakeStore(), CleanerConfig{}, nil)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := cleaner.Shutdown(ctx); err != nil {
			cancel()
			t.Fatalf("shutdown %d: %v", i, err)
		}
		cancel()
	}
}

func TestCleanerEnqueueDuringShutdown(t *testing.T) {
	cleaner := NewCleaner(newFakeStore(), CleanerConfig{QueueSize: 4, Workers: 2}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Racing sends must either queue or report closure, never panic.
		for i := 0; i < 200; i++ {
			if err := cleaner.Enqueue(context.Background(), "videos/race.mp4"); err != nil && err != errCleanerClosed {
				t.Errorf("unexpected enqueue error: %v", err)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cleaner.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	<-done
}

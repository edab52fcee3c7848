package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CleanerConfig controls the concurrency characteristics of the cleaner.
type CleanerConfig struct {
	QueueSize int
	Workers   int
}

// Cleaner removes orphaned media assets in the background. Deletion is a
// best-effort compensating action: failures are logged at warn level and
// never block the entity mutation that scheduled them.
type Cleaner struct {
	store  Store
	logger *slog.Logger

	jobs chan string
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on jobs against the close in Shutdown.
	mu     sync.Mutex
	closed bool
}

var errCleanerClosed = errors.New("media cleaner closed")

// NewCleaner starts a worker pool that deletes assets by key.
func NewCleaner(store Store, cfg CleanerConfig, logger *slog.Logger) *Cleaner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cleaner{
		store:  store,
		logger: logger,
		jobs:   make(chan string, cfg.QueueSize),
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker()
	}

	return c
}

// Enqueue schedules deletion of the asset identified by key. Empty keys are
// ignored so callers can pass handles unconditionally.
func (c *Cleaner) Enqueue(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errCleanerClosed
	}

	select {
	case c.jobs <- key:
		return nil
	default:
		// Queue full: drop rather than stall the request. The asset
		// becomes orphaned storage, which a periodic sweep can reclaim.
		c.logger.Warn("media cleaner queue full, dropping delete", "key", key)
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding deletions.
func (c *Cleaner) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.jobs)
		c.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Cleaner) worker() {
	defer c.wg.Done()

	for key := range c.jobs {
		c.deleteAsset(key)
	}
}

func (c *Cleaner) deleteAsset(key string) {
	if c.store == nil {
		c.logger.Error("media cleaner missing store")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("delete media asset", "key", key, "error", err)
		return
	}

	c.logger.Info("deleted media asset", "key", key)
}

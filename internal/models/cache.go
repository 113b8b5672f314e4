package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"subtitler/internal/logging"
)

// LoadFunc produces a model handle for a size. It may be slow.
type LoadFunc[M any] func(ctx context.Context, size Size) (M, error)

// Cache keeps at most one loaded handle per model size for the life of the
// process. Concurrent requests for a size that is not resident share a single
// load; a failed load stores nothing so the next request retries.
type Cache[M any] struct {
	load   LoadFunc[M]
	logger *slog.Logger

	mu      sync.RWMutex
	handles map[Size]M
	group   singleflight.Group
}

// NewCache builds an empty cache backed by load.
func NewCache[M any](load LoadFunc[M], logger *slog.Logger) *Cache[M] {
	return &Cache[M]{
		load:    load,
		logger:  logging.NewComponentLogger(logger, "model-cache"),
		handles: make(map[Size]M),
	}
}

// Get returns the resident handle for size, loading it first if necessary.
// Cancelling ctx stops the wait but not a load other callers may still need.
func (c *Cache[M]) Get(ctx context.Context, size Size) (M, error) {
	if handle, ok := c.lookup(size); ok {
		return handle, nil
	}

	ch := c.group.DoChan(string(size), func() (any, error) {
		if handle, ok := c.lookup(size); ok {
			return handle, nil
		}
		started := time.Now()
		c.logger.Info("loading model", logging.String(FieldModelSize, string(size)))
		handle, err := c.safeLoad(context.WithoutCancel(ctx), size)
		if err != nil {
			logging.WarnWithContext(c.logger, "model load failed", "model_load_failed",
				logging.String(FieldModelSize, string(size)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the whisper runtime and model directory"),
				logging.String(logging.FieldImpact, "request fails; next request retries the load"),
			)
			return nil, err
		}
		c.mu.Lock()
		c.handles[size] = handle
		c.mu.Unlock()
		c.logger.Info("model loaded",
			logging.String(FieldModelSize, string(size)),
			logging.Duration("elapsed", time.Since(started)),
		)
		return handle, nil
	})

	var zero M
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		handle, ok := res.Val.(M)
		if !ok {
			return zero, errors.New("model cache: unexpected handle type")
		}
		return handle, nil
	}
}

// safeLoad runs the loader and reports a panic as an ordinary load failure.
// singleflight re-panics on its own goroutine, which no caller can recover.
func (c *Cache[M]) safeLoad(ctx context.Context, size Size) (handle M, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero M
			handle = zero
			err = fmt.Errorf("load model %s: panic: %v", size, r)
		}
	}()
	return c.load(ctx, size)
}

// Preload loads each size in turn, stopping at the first failure.
func (c *Cache[M]) Preload(ctx context.Context, sizes ...Size) error {
	for _, size := range sizes {
		if _, err := c.Get(ctx, size); err != nil {
			return err
		}
	}
	return nil
}

// Loaded lists the resident sizes in catalog order.
func (c *Cache[M]) Loaded() []Size {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Size, 0, len(c.handles))
	for size := range c.handles {
		out = append(out, size)
	}
	sort.Slice(out, func(i, j int) bool { return sizeRank(out[i]) < sizeRank(out[j]) })
	return out
}

// Contains reports whether size is resident.
func (c *Cache[M]) Contains(size Size) bool {
	_, ok := c.lookup(size)
	return ok
}

func (c *Cache[M]) lookup(size Size) (M, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handle, ok := c.handles[size]
	return handle, ok
}

func sizeRank(size Size) int {
	for i, info := range catalog {
		if info.Size == size {
			return i
		}
	}
	return len(catalog)
}

// FieldModelSize is the structured logging key for model sizes.
const FieldModelSize = "model_size"

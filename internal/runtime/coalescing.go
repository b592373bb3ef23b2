package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/oshokin/nwjs-packager/internal/logger"
)

// Coalescing deduplicates requests for the same key. Requests that arrive
// while a download is in flight wait for it; later requests reuse its result.
// Failures are not remembered, so a later request retries.
type Coalescing struct {
	inner Downloader
	group singleflight.Group

	mu   sync.Mutex
	done map[string]string
}

// NewCoalescing wraps inner.
func NewCoalescing(inner Downloader) *Coalescing {
	return &Coalescing{
		inner: inner,
		done:  make(map[string]string),
	}
}

// Get implements Downloader.
func (c *Coalescing) Get(ctx context.Context, req Request) (string, error) {
	key := req.Key()

	if dir, ok := c.lookup(key); ok {
		return dir, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// A download may have completed between lookup and Do.
		if dir, ok := c.lookup(key); ok {
			return dir, nil
		}

		dir, err := c.inner.Get(ctx, req)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.done[key] = dir
		c.mu.Unlock()

		return dir, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		logger.DebugKV(ctx, "Joined an in-flight runtime download", "key", key)
	}

	dir, _ := v.(string)

	return dir, nil
}

func (c *Coalescing) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir, ok := c.done[key]

	return dir, ok
}

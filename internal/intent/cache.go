package intent

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises successful classifications in a bounded LRU keyed by the
// normalised message. Failures are never cached.
type Cached struct {
	next  Classifier
	cache *lru.Cache[string, Result]
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Classifier, size int) (*Cached, error) {
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("create classifier cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Classify implements Classifier.
func (c *Cached) Classify(ctx context.Context, text string) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if res, ok := c.cache.Get(key); ok {
		return res, nil
	}
	res, err := c.next.Classify(ctx, text)
	if err != nil {
		return Result{}, err
	}
	c.cache.Add(key, res)
	return res, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

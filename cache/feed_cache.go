package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TitanMusic/core/catalog"

	"github.com/go-redis/redis/v8"
)

const (
	feedPrefix        = "titan:feed"
	feedGenerationKey = feedPrefix + ":gen"
)

// FeedCache stores public feed pages in Redis. Invalidation bumps a
// generation counter that is part of every page key, so stale pages are
// never read again and expire on their own.
type FeedCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewFeedCache creates a feed cache whose pages live for ttl.
func NewFeedCache(client redis.Cmdable, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FeedCache{client: client, ttl: ttl}
}

// Get returns the cached page for opts, or nil on a miss, together with the
// generation it looked under. A page built after a miss must be stored with
// that generation so a concurrent Invalidate wins.
func (c *FeedCache) Get(ctx context.Context, opts catalog.ListOptions) (*catalog.Page, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, pageKey(gen, opts)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, nil
		}
		return nil, gen, fmt.Errorf("failed to read feed page: %w", err)
	}

	var page catalog.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, gen, fmt.Errorf("failed to decode feed page: %w", err)
	}
	return &page, gen, nil
}

// Set stores page under gen, the generation returned by the Get that missed.
func (c *FeedCache) Set(ctx context.Context, gen int64, opts catalog.ListOptions, page *catalog.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode feed page: %w", err)
	}
	if err := c.client.Set(ctx, pageKey(gen, opts), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write feed page: %w", err)
	}
	return nil
}

// Invalidate makes every cached page unreachable.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, feedGenerationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump feed generation: %w", err)
	}
	return nil
}

func (c *FeedCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, feedGenerationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read feed generation: %w", err)
	}
	return gen, nil
}

// pageKey encodes every listing option; genre and search are escaped so
// user input cannot collide with the separators.
func pageKey(gen int64, opts catalog.ListOptions) string {
	return strings.Join([]string{
		feedPrefix,
		strconv.FormatInt(gen, 10),
		strconv.Itoa(opts.Page),
		strconv.Itoa(opts.PageSize),
		url.QueryEscape(opts.Genre),
		url.QueryEscape(strings.ToLower(opts.Search)),
	}, ":")
}

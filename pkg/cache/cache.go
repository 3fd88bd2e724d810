// Package cache stores fetched lyric text by key.
package cache

import (
	"context"
)

// Cache is a string key/value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Chain 按顺序查询多个缓存，写入时写入全部
type Chain []Cache

func (c Chain) Get(ctx context.Context, key string) (string, bool, error) {
	var firstErr error
	for _, layer := range c {
		v, ok, err := layer.Get(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, firstErr
}

func (c Chain) Set(ctx context.Context, key, value string) error {
	var firstErr error
	for _, layer := range c {
		if err := layer.Set(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

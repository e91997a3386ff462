package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
)

// TakenEntry is one cached "taken" marker.
type TakenEntry struct {
	Key   string
	Field domain.Field
	Value string
	TTL   time.Duration
}

// ScanTaken walks the cached markers for field, or for every field when
// field is empty. fn returning an error stops the walk.
func (c *Client) ScanTaken(ctx context.Context, field domain.Field, count int64, fn func(TakenEntry) error) error {
	pattern := TakenKeyPrefix + "*"
	if field != "" {
		pattern = TakenKeyPrefix + string(field) + ":*"
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
		if err != nil {
			return domain.ErrCacheUnavailable(fmt.Errorf("scan %s: %w", pattern, err))
		}

		for _, k := range keys {
			ttl, err := c.rdb.TTL(ctx, k).Result()
			if err != nil {
				return domain.ErrCacheUnavailable(fmt.Errorf("ttl %s: %w", k, err))
			}
			f, v, _ := strings.Cut(strings.TrimPrefix(k, TakenKeyPrefix), ":")
			if err := fn(TakenEntry{Key: k, Field: domain.Field(f), Value: v, TTL: ttl}); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ForgetTaken drops the marker for one value. Needed after a user row is
// removed by hand, since markers otherwise outlive the record until TTL.
func (c *Client) ForgetTaken(ctx context.Context, field domain.Field, value string) (bool, error) {
	n, err := c.rdb.Del(ctx, takenKey(field, value)).Result()
	if err != nil {
		return false, domain.ErrCacheUnavailable(err)
	}
	return n > 0, nil
}

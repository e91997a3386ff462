package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 2 * time.Second
	// cache calls share the per-lookup budget with the store
	opTimeout = 500 * time.Millisecond
)

// Client holds the connection used by the taken-answer cache.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  pingTimeout,
			ReadTimeout:  opTimeout,
			WriteTimeout: opTimeout,
			MaxRetries:   1,
		}),
	}
}

func (c *Client) Addr() string { return c.rdb.Options().Addr }

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Addr(), err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

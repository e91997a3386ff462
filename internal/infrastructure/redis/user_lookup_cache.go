package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

const (
	DefaultTakenTTL = 10 * time.Minute

	// TakenKeyPrefix is followed by "<field>:<value>".
	TakenKeyPrefix = "registration:taken:"
)

// CachedUserRepo decorates a registration.UserRepo with a Redis cache of
// usernames and emails known to be taken.
//   - Read path: Redis hit => taken; miss => store, and remember a "taken" answer
//   - Write path: store => mark both values taken (best effort)
//
// Only positive answers are cached. A "free" answer must always come from the
// store, and the store's unique constraints stay authoritative for writes.
type CachedUserRepo struct {
	inner registration.UserRepo
	rdb   *goredis.Client
	ttl   time.Duration
}

func NewCachedUserRepo(inner registration.UserRepo, client *Client, ttl time.Duration) *CachedUserRepo {
	var rdb *goredis.Client
	if client != nil {
		rdb = client.rdb
	}
	if ttl <= 0 {
		ttl = DefaultTakenTTL
	}
	return &CachedUserRepo{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func takenKey(field domain.Field, value string) string {
	return TakenKeyPrefix + string(field) + ":" + value
}

func (c *CachedUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return c.exists(ctx, domain.FieldUsername, username, c.inner.ExistsByUsername)
}

func (c *CachedUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return c.exists(ctx, domain.FieldEmail, email, c.inner.ExistsByEmail)
}

func (c *CachedUserRepo) exists(
	ctx context.Context,
	field domain.Field,
	value string,
	lookup func(context.Context, string) (bool, error),
) (bool, error) {
	// 1) Try Redis
	if c.rdb != nil {
		n, err := c.rdb.Exists(ctx, takenKey(field, value)).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil && err != goredis.Nil {
			// redis error -> fall back to the store, do not fail registration
			logger.WithCtx(ctx).Debug().Err(err).Str("field", string(field)).Msg("taken cache read failed")
		}
	}

	// 2) Store is the source of truth
	taken, err := lookup(ctx, value)
	if err != nil {
		return false, err
	}

	// 3) Best-effort fill
	if taken {
		c.markTaken(ctx, field, value)
	}
	return taken, nil
}

func (c *CachedUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	created, err := c.inner.Create(ctx, u)
	switch {
	case domain.Is(err, domain.CodeUsernameAlreadyExists):
		c.markTaken(ctx, domain.FieldUsername, u.Username)
		return created, err
	case domain.Is(err, domain.CodeEmailAlreadyExists):
		c.markTaken(ctx, domain.FieldEmail, u.Email)
		return created, err
	case err != nil:
		return created, err
	}

	c.markTaken(ctx, domain.FieldUsername, created.Username)
	c.markTaken(ctx, domain.FieldEmail, created.Email)
	return created, nil
}

func (c *CachedUserRepo) markTaken(ctx context.Context, field domain.Field, value string) {
	if c.rdb == nil || value == "" {
		return
	}
	if err := c.rdb.Set(ctx, takenKey(field, value), "1", c.ttl).Err(); err != nil {
		logger.WithCtx(ctx).Debug().Err(err).Str("field", string(field)).Msg("taken cache write failed")
	}
}

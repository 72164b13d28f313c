package throttlesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/amork0112-rgb/frageedu/core"
)

const keyPrefix = "frageedu:login-failures:"

type redisLimiter struct {
	rdb    redis.UniversalClient
	max    int
	window time.Duration
}

var _ Limiter = (*redisLimiter)(nil)

// NewRedisLimiter shares counters between API instances. Keys expire with the window.
func NewRedisLimiter(rdb redis.UniversalClient, conf *core.Config) Limiter {
	return &redisLimiter{
		rdb:    rdb,
		max:    conf.Auth.LoginMaxAttempts,
		window: conf.Auth.LoginLockout,
	}
}

// NewRedisClient connects to conf.Redis and pings it.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

func (l *redisLimiter) Locked(ctx context.Context, key string) (time.Duration, error) {
	if l.max <= 0 {
		return 0, nil
	}
	k := keyPrefix + key
	n, err := l.rdb.Get(ctx, k).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading failures")
	}
	if n < l.max {
		return 0, nil
	}
	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return 0, errors.Wrap(err, "reading lockout ttl")
	}
	if ttl < 0 {
		// no expiry set (crash between INCR and PEXPIRE); the full window applies
		ttl = l.window
	}
	return ttl, nil
}

func (l *redisLimiter) Fail(ctx context.Context, key string) error {
	k := keyPrefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return errors.Wrap(err, "recording failure")
	}
	if n == 1 {
		// the window starts at the first failure
		return errors.Wrap(l.rdb.PExpire(ctx, k, l.window).Err(), "setting lockout window")
	}
	return nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.rdb.Del(ctx, keyPrefix+key).Err(), "resetting failures")
}

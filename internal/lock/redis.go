package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lease taken over by another instance is never released by us.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared by every service instance using the same server.
type Redis struct {
	rdb    *goredis.Client
	log    *slog.Logger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL is how long a lease lives. Leases are not renewed, so TTL has to
	// exceed the longest request holding one. MySQL row locks still
	// serialize writers if a lease expires early.
	TTL   time.Duration
	Retry time.Duration
}

func NewRedis(log *slog.Logger, opts RedisOptions) (*Redis, error) {
	const op = "lock.NewRedis"

	if opts.Addr == "" {
		return nil, fmt.Errorf("%s: missing redis address", op)
	}
	if opts.Prefix == "" {
		opts.Prefix = "cutting:job-lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: redis ping: %w", op, err)
	}

	return &Redis{
		rdb:    rdb,
		log:    log.With(slog.String("component", "redis-lock")),
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		retry:  opts.Retry,
	}, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	const op = "lock.Redis.Lock"

	k := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			break
		}

		t := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// A failed release is covered by the lease ttl.
			if err := releaseScript.Run(ctx, r.rdb, []string{k}, token).Err(); err != nil {
				r.log.Warn("failed to release job lock", slog.String("key", key), slog.String("error", err.Error()))
			}
		})
	}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

package monitors

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisProbe struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisProbe(rdb *redis.Client) *RedisProbe {
	return &RedisProbe{rdb: rdb, timeout: defaultTimeout}
}

func (p *RedisProbe) Name() string { return "redis" }

func (p *RedisProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %v", err)
	}
	return nil
}

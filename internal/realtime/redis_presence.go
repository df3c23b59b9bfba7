package realtime

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// removeScript drops one connection and clears the user once none remain.
// A count below zero means the user was never added here.
var removeScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if n > 0 then
	return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
if n == 0 then
	return 1
end
return 0
`)

// RedisPresence shares the online set between server instances.
// Connection counts live in <key>:conns and display names in <key>:names.
type RedisPresence struct {
	rdb   *redis.Client
	conns string
	names string
}

func NewRedisPresence(rdb *redis.Client, key string) *RedisPresence {
	return &RedisPresence{rdb: rdb, conns: key + ":conns", names: key + ":names"}
}

func (p *RedisPresence) Add(ctx context.Context, userID uint, name string) (bool, error) {
	field := strconv.FormatUint(uint64(userID), 10)

	pipe := p.rdb.TxPipeline()
	incr := pipe.HIncrBy(ctx, p.conns, field, 1)
	pipe.HSet(ctx, p.names, field, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() == 1, nil
}

func (p *RedisPresence) Remove(ctx context.Context, userID uint) (bool, error) {
	field := strconv.FormatUint(uint64(userID), 10)

	last, err := removeScript.Run(ctx, p.rdb, []string{p.conns, p.names}, field).Int()
	if err != nil {
		return false, err
	}
	return last == 1, nil
}

func (p *RedisPresence) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := p.rdb.HGet(ctx, p.conns, strconv.FormatUint(uint64(userID), 10)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *RedisPresence) List(ctx context.Context) ([]OnlineUser, error) {
	names, err := p.rdb.HGetAll(ctx, p.names).Result()
	if err != nil {
		return nil, err
	}

	out := make([]OnlineUser, 0, len(names))
	for field, name := range names {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, OnlineUser{ID: uint(id), Name: name})
	}
	sortOnline(out)
	return out, nil
}

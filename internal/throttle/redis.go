package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript applies the memory store's rules atomically on one hash.
// KEYS[1] hash; ARGV id, now ms, window ms, max.
var consumeScript = redis.NewScript(`
local reset = tonumber(redis.call('HGET', KEYS[1], '__reset') or '0')
local now = tonumber(ARGV[2])
if now > reset then
	redis.call('DEL', KEYS[1])
	reset = now + tonumber(ARGV[3])
	redis.call('HSET', KEYS[1], '__reset', reset)
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
local count = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if count >= tonumber(ARGV[4]) then
	return {0, reset}
end
redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
return {1, reset}
`)

// RedisStore shares one window across several server processes
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "problepo:throttle"
	}
	return &RedisStore{client: client, key: key}
}

// Connect opens a client and verifies it answers
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Consume(ctx context.Context, id string, now time.Time, window time.Duration, max int) (bool, time.Time, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key},
		"c:"+id, now.UnixMilli(), window.Milliseconds(), max).Int64Slice()
	if err != nil {
		return false, time.Time{}, err
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("unexpected script reply %v", res)
	}
	return res[0] == 1, time.UnixMilli(res[1]), nil
}

// Ping reports whether redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

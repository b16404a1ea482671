package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"store-backend/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// admitScript incrementa o contador e, só na primeira requisição da janela,
// define a expiração. O TTL restante marca quando a janela recomeça.
var admitScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {c, ttl}
`)

// RedisWindowStore é a janela fixa compartilhada entre várias instâncias.
//
// O relógio é o do Redis (expiração da chave), então o `now` recebido em Admit
// não é usado para decidir a virada da janela.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	max    int
	window time.Duration
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb redis.Scripter, maxRequests int, window time.Duration, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
		max:    maxRequests,
		window: window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit implementa domain.LimiterStore.
func (s *RedisWindowStore) Admit(ctx context.Context, key domain.Key, _ time.Time) (domain.Decision, error) {
	k := s.prefix + ":" + string(key)

	res, err := admitScript.Run(ctx, s.rdb, []string{k}, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis admit %q: %w", key, err)
	}
	if len(res) != 2 {
		return domain.Decision{}, fmt.Errorf("redis admit %q: unexpected reply %v", key, res)
	}

	count := int(res[0])
	if count <= s.max {
		return domain.Decision{Allowed: true, Count: count, Limit: s.max}, nil
	}
	return domain.Decision{
		Allowed:    false,
		Count:      count,
		Limit:      s.max,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

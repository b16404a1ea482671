package infra

import (
	"context"
	"strings"
	"time"

	"store-backend/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega as decisões das políticas em hashes do Redis, um
// grupo de chaves por política:
//
//	<prefix>:<policy>                    allowed/denied cumulativos
//	<prefix>:<policy>:m:<yyyymmddhhmm>   série por minuto (expira em ttl)
//	<prefix>:<policy>:route              "<METHOD> <path>:<allowed|denied>"
//	<prefix>:<policy>:key:<key>          por cliente, só com trackKeys
//
// Eventos sem política caem no grupo "unknown".
type RedisStatsStore struct {
	rdb       redis.Cmdable
	prefix    string
	ttl       time.Duration
	perMinute bool
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ": "); p != "" {
			s.prefix = p
		}
	}
}

// WithStatsTTL vale para a série por minuto e para os contadores por cliente.
func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsBucket: "minute" (padrão) liga a série por minuto, "none" desliga.
func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.perMinute = strings.EqualFold(strings.TrimSpace(bucket), "minute")
	}
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:       rdb,
		prefix:    "policy:stats",
		ttl:       24 * time.Hour,
		perMinute: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
	}
	policy := strings.TrimSpace(ev.Policy)
	if policy == "" {
		policy = "unknown"
	}
	group := s.prefix + ":" + policy

	pipe := s.rdb.Pipeline()
	incr := func(key, field string, ttl time.Duration) {
		pipe.HIncrBy(ctx, key, field, 1)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}

	incr(group, decision, 0)
	if s.perMinute {
		incr(group+":m:"+at.UTC().Format("200601021504"), decision, s.ttl)
	}
	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		incr(group+":route", route+":"+decision, 0)
	}
	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		incr(group+":key:"+k, decision, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

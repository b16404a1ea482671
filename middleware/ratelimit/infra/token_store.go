package infra

import (
	"context"
	"sync"
	"time"

	"store-backend/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// TokenBucketStore é a alternativa baseada em token-bucket (x/time/rate) com
// cache por chave e limpeza periódica.
//
// O balde tem capacidade maxRequests e reabastece maxRequests tokens por
// janela, então a média por janela é a mesma do WindowStore, mas sem o pico de
// 2x que a janela fixa permite na virada.
type TokenBucketStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*bucketEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type TokenBucketOption func(*TokenBucketStore)

func WithIdleTTL(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.cleanupEvery = d }
}

func NewTokenBucketStore(maxRequests int, window time.Duration, opts ...TokenBucketOption) *TokenBucketStore {
	s := &TokenBucketStore{
		entries:      make(map[domain.Key]*bucketEntry),
		limit:        rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:        maxRequests,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenBucketStore) RPS() float64 { return float64(s.limit) }
func (s *TokenBucketStore) Burst() int   { return s.burst }

// Admit implementa domain.LimiterStore.
func (s *TokenBucketStore) Admit(_ context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	lim := s.limiter(key, now)

	// rate.Limiter já é seguro para uso concorrente.
	r := lim.ReserveN(now, 1)
	if r.OK() && r.DelayFrom(now) == 0 {
		return domain.Decision{Allowed: true, Limit: s.burst}, nil
	}

	var retry time.Duration
	if r.OK() {
		retry = r.DelayFrom(now)
		r.CancelAt(now)
	}
	return domain.Decision{Allowed: false, Limit: s.burst, RetryAfter: retry}, nil
}

func (s *TokenBucketStore) limiter(key domain.Key, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *TokenBucketStore) Cleanup(now time.Time) {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *TokenBucketStore) StartJanitor(ctx context.Context) {
	startJanitor(ctx, s.cleanupEvery, func() { s.Cleanup(time.Now()) })
}

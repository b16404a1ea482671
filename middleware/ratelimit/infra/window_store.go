package infra

import (
	"context"
	"sync"
	"time"

	"store-backend/middleware/ratelimit/domain"

	"github.com/cespare/xxhash/v2"
)

const windowShards = 32

// WindowStore implementa domain.LimiterStore com janela fixa por chave.
//
// O mapa é dividido em shards, cada um com seu mutex: chaves diferentes quase
// nunca disputam o mesmo lock, e a mesma chave sempre cai no mesmo shard, o que
// torna o par (count, start) atômico.
type WindowStore struct {
	max          int
	window       time.Duration
	cleanupEvery time.Duration
	shards       [windowShards]windowShard
}

type windowShard struct {
	mu      sync.Mutex
	windows map[domain.Key]*domain.Window
}

type WindowOption func(*WindowStore)

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

func NewWindowStore(maxRequests int, window time.Duration, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		max:          maxRequests,
		window:       window,
		cleanupEvery: 2 * time.Minute,
	}
	for i := range s.shards {
		s.shards[i].windows = make(map[domain.Key]*domain.Window)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) shard(key domain.Key) *windowShard {
	return &s.shards[xxhash.Sum64String(string(key))%windowShards]
}

// Admit implementa domain.LimiterStore.
func (s *WindowStore) Admit(_ context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[key]
	if !ok || w.Expired(now, s.window) {
		sh.windows[key] = &domain.Window{Count: 1, Start: now}
		return domain.Decision{Allowed: true, Count: 1, Limit: s.max}, nil
	}

	// passado o limite o contador para em max+1: toda chamada seguinte na
	// janela continua rejeitada, sem crescer indefinidamente.
	if w.Count <= s.max {
		w.Count++
	}
	if w.Count <= s.max {
		return domain.Decision{Allowed: true, Count: w.Count, Limit: s.max}, nil
	}

	return domain.Decision{
		Allowed:    false,
		Count:      w.Count,
		Limit:      s.max,
		RetryAfter: w.Start.Add(s.window).Sub(now),
	}, nil
}

// Len devolve quantas janelas estão em memória.
func (s *WindowStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}

// Cleanup remove janelas que já expiraram em `now`.
func (s *WindowStore) Cleanup(now time.Time) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, w := range sh.windows {
			if w.Expired(now, s.window) {
				delete(sh.windows, k)
			}
		}
		sh.mu.Unlock()
	}
}

// StartJanitor inicia uma goroutine que limpa janelas expiradas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx context.Context) {
	startJanitor(ctx, s.cleanupEvery, func() { s.Cleanup(time.Now()) })
}

func startJanitor(ctx context.Context, every time.Duration, cleanup func()) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cleanup()
			}
		}
	}()
}

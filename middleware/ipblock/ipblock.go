// Package ipblock rejeita requisições de clientes presentes numa lista fixa.
package ipblock

import (
	"context"
	"net/http"
	"strings"
	"time"

	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit/domain"
)

// BlockedBody é o corpo literal da resposta 403.
const BlockedBody = "Your IP is blocked."

// Blocklist é lida na inicialização e não muda mais; consultas concorrentes
// não precisam de lock.
type Blocklist struct {
	blocked map[string]struct{}
	stats   domain.StatsStore
}

type Option func(*Blocklist)

// WithStats registra cada decisão (best-effort).
func WithStats(s domain.StatsStore) Option {
	return func(b *Blocklist) { b.stats = s }
}

func New(keys []string, opts ...Option) *Blocklist {
	b := &Blocklist{blocked: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			b.blocked[k] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Check devolve true quando a chave pode passar.
func (b *Blocklist) Check(key string) bool {
	_, blocked := b.blocked[key]
	return !blocked
}

func (b *Blocklist) Len() int { return len(b.blocked) }

func (b *Blocklist) Name() string { return "ipblock" }

// Inbound usa o endereço de rede (RequestContext.RemoteIP), nunca a chave do
// rate limit, que pode vir de header controlado pelo cliente.
func (b *Blocklist) Inbound(rc *pipeline.RequestContext) bool {
	allowed := b.Check(rc.RemoteIP)
	if b.stats != nil && !allowed {
		_ = b.stats.Record(context.WithoutCancel(rc.Request.Context()), domain.StatsEvent{
			Key:     domain.Key(rc.RemoteIP),
			Allowed: false,
			Policy:  b.Name(),
			Method:  rc.Method,
			Path:    rc.Path,
			At:      time.Now(),
		})
	}
	if allowed {
		return false
	}
	rc.Reject(b.Name(), http.StatusForbidden, BlockedBody)
	return true
}

func (b *Blocklist) Outbound(*pipeline.RequestContext) {}

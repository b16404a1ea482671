package ratelimit

import (
	"net/http"
	"time"

	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit/application"
	"store-backend/middleware/ratelimit/domain"
	"store-backend/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration

	// Pool substitui o semáforo padrão (testes).
	Pool domain.SlotPool
}

type releaseKey struct{}

// Concurrency limita quantas requisições ficam em andamento ao mesmo tempo.
// A vaga é adquirida na ida e devolvida na volta, inclusive quando o handler falha.
type Concurrency struct {
	svc          application.ConcurrencyService
	rejectStatus int
}

// NewConcurrency devolve nil quando Max <= 0 (sem limite); nesse caso o
// estágio não deve entrar no pipeline.
func NewConcurrency(opts ConcurrencyOptions) *Concurrency {
	if opts.Max <= 0 && opts.Pool == nil {
		return nil
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	pool := opts.Pool
	if pool == nil {
		pool = infra.NewChanPool(opts.Max)
	}
	return &Concurrency{
		svc: application.ConcurrencyService{
			Pool:           pool,
			AcquireTimeout: opts.AcquireTimeout,
		},
		rejectStatus: opts.RejectStatus,
	}
}

func (c *Concurrency) Name() string { return "concurrency" }

func (c *Concurrency) Inbound(rc *pipeline.RequestContext) bool {
	release, err := c.svc.Acquire(rc.Request.Context())
	if err != nil {
		rc.Reject(c.Name(), c.rejectStatus, http.StatusText(c.rejectStatus))
		return true
	}
	rc.Set(releaseKey{}, release)
	return false
}

func (c *Concurrency) Outbound(rc *pipeline.RequestContext) {
	if v, ok := rc.Get(releaseKey{}); ok {
		v.(func())()
	}
}

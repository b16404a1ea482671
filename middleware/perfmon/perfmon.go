// Package perfmon mede o tempo de cada requisição que passou pelas políticas
// (bloqueio de IP, rate limit) e emite um TimingRecord no sink.
package perfmon

import (
	"time"

	"store-backend/internal/obs"
	"store-backend/middleware/pipeline"
)

type Monitor struct {
	sink obs.Sink
	now  func() time.Time
}

type Option func(*Monitor)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(sink obs.Sink, opts ...Option) *Monitor {
	m := &Monitor{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Name() string { return "perfmon" }

func (m *Monitor) Inbound(rc *pipeline.RequestContext) bool {
	rc.Timing.Start = m.now()
	return false
}

// Outbound roda mesmo quando o handler falhou: a fronteira já trocou a
// resposta e a duração inclui o tempo até a falha.
func (m *Monitor) Outbound(rc *pipeline.RequestContext) {
	rc.Timing.End = m.now()
	if m.sink == nil {
		return
	}
	m.sink.Timing(obs.TimingRecord{
		RequestID: rc.RequestID,
		Method:    rc.Method,
		Path:      rc.Path,
		Status:    rc.Response.Status(),
		Duration:  rc.Timing.Duration(),
		Failed:    rc.Fault() != nil,
	})
}

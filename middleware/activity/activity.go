// Package activity registra quem fez o quê: identidade, método, rota e status
// final, só para usuários autenticados.
package activity

import (
	"store-backend/internal/obs"
	"store-backend/middleware/pipeline"
)

type Logger struct {
	sink obs.Sink
	// skipRejections ignora respostas 403/429 das políticas.
	skipRejections bool
}

type Option func(*Logger)

// WithoutRejections deixa de registrar requisições barradas pelo bloqueio de
// IP ou pelo rate limit. Por padrão toda resposta final é registrada.
func WithoutRejections() Option {
	return func(l *Logger) { l.skipRejections = true }
}

func New(sink obs.Sink, opts ...Option) *Logger {
	l := &Logger{sink: sink}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Name() string { return "activity" }

func (l *Logger) Inbound(*pipeline.RequestContext) bool { return false }

// Outbound resolve a identidade só depois da resposta decidida; se a
// resolução falhar, a requisição é tratada como anônima e não é registrada.
func (l *Logger) Outbound(rc *pipeline.RequestContext) {
	if l.sink == nil {
		return
	}
	if l.skipRejections && rc.RejectedBy() != "" {
		return
	}
	id, err := rc.Identity()
	if err != nil || !id.Authenticated() {
		return
	}
	l.sink.Activity(obs.ActivityRecord{
		RequestID: rc.RequestID,
		UserID:    id.UserID,
		Method:    rc.Method,
		Path:      rc.Path,
		Status:    rc.Response.Status(),
	})
}

package pipeline

import (
	"context"
	"net/http"
	"strings"
	"time"

	"store-backend/internal/obs"

	"github.com/google/uuid"
)

// Stage é um estágio do pipeline.
//
// Inbound roda na ida; devolve true quando o estágio já definiu a resposta
// (short-circuit) e nada depois dele deve rodar. Outbound roda na volta, só
// para estágios cujo Inbound foi chamado, e sempre enxerga o status final.
type Stage interface {
	Name() string
	Inbound(rc *RequestContext) bool
	Outbound(rc *RequestContext)
}

type Options struct {
	// Stages na ordem da ida. A volta é a ordem inversa.
	Stages []Stage

	ClientKey ClientKeyFunc
	// RemoteIP define o endereço usado pelo bloqueio de IP. Padrão: host
	// de RemoteAddr, sem olhar headers.
	RemoteIP ClientKeyFunc
	Identify IdentityFunc
	Sink     obs.Sink

	// WithStacks inclui o stack trace nos registros de falha.
	WithStacks bool

	Now func() time.Time
}

// Pipeline é imutável depois de construído e pode servir requisições
// concorrentes; o estado compartilhado fica dentro dos estágios.
type Pipeline struct {
	stages    []Stage
	clientKey ClientKeyFunc
	remoteIP  ClientKeyFunc
	identify  IdentityFunc
	boundary  *Boundary
	now       func() time.Time
}

func New(opts Options) *Pipeline {
	if opts.ClientKey == nil {
		opts.ClientKey = DefaultClientKey("", false)
	}
	if opts.RemoteIP == nil {
		opts.RemoteIP = PeerAddress(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stages := make([]Stage, 0, len(opts.Stages))
	for _, st := range opts.Stages {
		if st != nil {
			stages = append(stages, st)
		}
	}
	return &Pipeline{
		stages:    stages,
		clientKey: opts.ClientKey,
		remoteIP:  opts.RemoteIP,
		identify:  opts.Identify,
		boundary:  &Boundary{Sink: opts.Sink, WithStacks: opts.WithStacks},
		now:       opts.Now,
	}
}

// StageNames devolve a ordem da ida, útil para log de inicialização.
func (p *Pipeline) StageNames() []string {
	out := make([]string, 0, len(p.stages))
	for _, st := range p.stages {
		out = append(out, st.Name())
	}
	return out
}

// Handler envolve next com o pipeline.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := p.begin(r)
		entered := make([]Stage, 0, len(p.stages))

		p.boundary.Run(rc, func() {
			for _, st := range p.stages {
				entered = append(entered, st)
				if st.Inbound(rc) {
					return
				}
			}
			// identidade só depois das políticas
			if _, err := rc.Identity(); err != nil {
				RaiseFault(rc.Request.Context(), err)
				return
			}
			next.ServeHTTP(rc.Response, rc.Request)
		})

		for i := len(entered) - 1; i >= 0; i-- {
			st := entered[i]
			p.boundary.Run(rc, func() { st.Outbound(rc) })
		}

		rc.Response.Header().Set("X-Request-Id", rc.RequestID)
		rc.Response.flush(w)
	})
}

func (p *Pipeline) begin(r *http.Request) *RequestContext {
	reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
	if reqID == "" {
		reqID = uuid.NewString()
	}

	rc := &RequestContext{
		RequestID: reqID,
		ClientKey: p.clientKey(r),
		RemoteIP:  p.remoteIP(r),
		Method:    r.Method,
		Path:      r.URL.Path,
		StartedAt: p.now(),
		Response:  newResponseBuffer(),
		identify:  p.identify,
	}
	rc.Request = r.WithContext(context.WithValue(r.Context(), ctxKey{}, rc))
	return rc
}

package pipeline

import (
	"context"
	"net/http"
	"time"
)

// Identity é o usuário autenticado da requisição. UserID vazio = anônimo.
type Identity struct {
	UserID string
	Staff  bool
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

// IdentityFunc resolve a identidade a partir da requisição. Credencial
// inválida deve virar Identity{} (anônimo); erro é reservado para falha de
// infraestrutura e vira falha não tratada quando o handler precisaria dela.
// Só roda depois das políticas: requisição barrada nunca toca o repositório
// de usuários por causa da entrada.
type IdentityFunc func(r *http.Request) (Identity, error)

// RequestTiming existe só durante a requisição.
type RequestTiming struct {
	Start time.Time
	End   time.Time
}

func (t RequestTiming) Duration() time.Duration {
	if t.Start.IsZero() || t.End.Before(t.Start) {
		return 0
	}
	return t.End.Sub(t.Start)
}

// RequestContext carrega os dados de uma requisição através dos estágios.
// Não é compartilhado entre goroutines.
type RequestContext struct {
	Request   *http.Request
	RequestID string
	// ClientKey particiona o rate limit; pode vir de header do cliente.
	ClientKey string
	// RemoteIP é o endereço de rede do par (ou o informado por proxy
	// confiável). É a chave do bloqueio de IP.
	RemoteIP  string
	Method    string
	Path      string
	StartedAt time.Time
	Timing    RequestTiming

	Response *ResponseBuffer

	rejectedBy string

	identify    IdentityFunc
	identity    Identity
	identityErr error
	identified  bool

	fault     error
	pending   error
	converted bool
	values    map[any]any
}

// Identity resolve a identidade na primeira chamada e guarda o resultado;
// chamadas seguintes não consultam o IdentityFunc de novo.
func (rc *RequestContext) Identity() (Identity, error) {
	if !rc.identified {
		rc.identified = true
		if rc.identify != nil {
			rc.identity, rc.identityErr = rc.identify(rc.Request)
		}
	}
	return rc.identity, rc.identityErr
}

// Fault devolve a primeira falha não tratada da requisição, se houve.
func (rc *RequestContext) Fault() error { return rc.fault }

// Reject responde em texto puro em nome de uma política (short-circuit).
func (rc *RequestContext) Reject(by string, status int, body string) {
	rc.rejectedBy = by
	rc.Response.Respond(status, "text/plain; charset=utf-8", []byte(body))
}

// RejectedBy devolve o nome do estágio que barrou a requisição, ou "".
func (rc *RequestContext) RejectedBy() string { return rc.rejectedBy }

// Set guarda um valor de escopo da requisição (ex.: release de um semáforo).
func (rc *RequestContext) Set(key, val any) {
	if rc.values == nil {
		rc.values = make(map[any]any)
	}
	rc.values[key] = val
}

func (rc *RequestContext) Get(key any) (any, bool) {
	v, ok := rc.values[key]
	return v, ok
}

type ctxKey struct{}

// FromContext devolve o RequestContext da requisição em andamento.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return rc, ok
}

// IdentityFrom devolve a identidade da requisição; anônimo se a resolução
// falhou ou se não há pipeline.
func IdentityFrom(ctx context.Context) Identity {
	if rc, ok := FromContext(ctx); ok {
		id, _ := rc.Identity()
		return id
	}
	return Identity{}
}

// RequestIDFrom devolve o id da requisição (X-Request-Id).
func RequestIDFrom(ctx context.Context) string {
	if rc, ok := FromContext(ctx); ok {
		return rc.RequestID
	}
	return ""
}

// RaiseFault entrega ao pipeline um erro que o handler não soube tratar.
// A fronteira converte a resposta em erro genérico quando o handler retornar.
// Só a primeira falha é guardada. Devolve false fora de um pipeline.
func RaiseFault(ctx context.Context, err error) bool {
	rc, ok := FromContext(ctx)
	if !ok || err == nil {
		return false
	}
	if rc.pending == nil {
		rc.pending = err
	}
	return true
}

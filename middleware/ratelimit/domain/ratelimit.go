package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

// Key identifica o cliente: endereço remoto (anônimo) ou id do usuário autenticado.
type Key string

// Window é o estado de uma janela fixa para uma chave.
//
// Invariante: Count só é comparado com o máximo enquanto a janela está ativa;
// quando now-Start >= duração, a janela recomeça (Count=1, Start=now).
type Window struct {
	Count int
	Start time.Time
}

// Expired informa se a janela já terminou em `now`.
func (w Window) Expired(now time.Time, d time.Duration) bool {
	return w.Start.IsZero() || now.Sub(w.Start) >= d
}

// LimiterStore decide e contabiliza uma requisição para a chave, de forma atômica.
//
// Implementações precisam serializar chamadas concorrentes para a MESMA chave:
// duas requisições simultâneas nunca podem passar juntas no limite.
type LimiterStore interface {
	Admit(ctx context.Context, key Key, now time.Time) (Decision, error)
}

type Decision struct {
	Allowed bool

	// Count é quantas requisições a chave já fez na janela atual (inclui esta).
	Count int
	// Limit é o máximo configurado por janela (0 quando não se aplica).
	Limit int

	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

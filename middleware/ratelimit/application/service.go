package application

import (
	"context"
	"time"

	"store-backend/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

// Decide consulta o store para a chave.
//
// Se o store falhar (ex.: Redis fora do ar), a decisão é permitir e o erro é
// devolvido para o chamador registrar. Bloquear todo o tráfego por falha de
// infraestrutura seria pior que deixar passar.
func (s Service) Decide(ctx context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	if s.Store == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	dec, err := s.Store.Admit(ctx, key, now)
	if err != nil {
		return domain.Decision{Allowed: true}, err
	}
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec, nil
	}
	if dec.RetryAfter <= 0 {
		dec.RetryAfter = s.RetryAfter
	}
	return dec, nil
}

// Package ratelimit fornece os estágios de pipeline para rate limit e limite
// de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, token bucket, Redis, semáforo)
//   - ratelimit (este pacote): estágios do pipeline + tradução para status/headers
//
// Fluxo no pipeline:
//
//  1. A chave do cliente já vem no RequestContext (IP/header/XFF)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 (rate limit) ou 503 (concorrência)
//  4. Se permitido, segue para o próximo estágio
//
// A configuração vem de internal/config (RATE_MAX_REQUESTS, RATE_WINDOW,
// RATE_ALGORITHM, CONCURRENCY_MAX, CONCURRENCY_TIMEOUT, ...).
package ratelimit

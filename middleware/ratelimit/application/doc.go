// Package application decide a admissão de uma requisição: Service aplica a
// janela de rate limit (e libera a requisição se o store falhar) e
// ConcurrencyService controla as vagas de execução. Não conhece net/http.
package application

// Package pipeline compõe os estágios HTTP (bloqueio de IP, rate limit,
// concorrência, monitor de performance, log de atividade) em uma cadeia única,
// com ordem explícita na ida e na volta, envolvida pela fronteira de exceções.
//
// Fluxo de uma requisição:
//
//  1. Cria o RequestContext (id, chave do cliente, identidade, início)
//  2. Ida: chama Inbound de cada estágio, na ordem da lista; um estágio pode
//     responder na hora (short-circuit) e os seguintes não são chamados
//  3. Handler (se ninguém respondeu antes)
//  4. Volta: Outbound dos estágios que entraram, em ordem inversa
//  5. A resposta bufferizada é entregue ao transporte uma única vez
//
// A resposta fica em buffer até o passo 5. Assim a fronteira de exceções pode
// descartar uma resposta parcial e os observadores da volta enxergam o status
// final, já traduzido.
package pipeline

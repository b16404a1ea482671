// Package domain tem os tipos das políticas de admissão: chave do cliente,
// janela, decisão, eventos de estatística e o pool de vagas de concorrência.
// Nada aqui depende de HTTP ou de um store concreto.
package domain

// Package infra tem os stores por trás das políticas do pipeline.
//
//   - WindowStore: janela fixa em memória, 32 shards com mutex próprio
//   - TokenBucketStore: alternativa com golang.org/x/time/rate
//   - RedisWindowStore: janela fixa compartilhada entre instâncias
//   - ChanPool: vagas do limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: contagem de admissões e rejeições por política
package infra

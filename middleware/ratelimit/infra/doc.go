// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: contadores de janela fixa por (cliente, categoria), com sweep preguiçoso
//   - ViolationTracker: escalonamento de violações e bloqueio temporário
//   - MemoryStatsStore / RedisStatsStore: estatísticas best-effort das decisões
//   - PrometheusObserver: métricas das decisões
//   - NewSemaphorePool: semáforo para limite de concorrência
//
// Todo o estado de rate limit vive na memória do processo. Com N instâncias cada
// cliente tem, na prática, N vezes a cota, e um bloqueio numa instância não vale
// nas outras. Isso é aceito: a checagem não faz I/O nem depende de coordenação.
package infra

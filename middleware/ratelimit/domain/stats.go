package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key      ClientKey
	Category Category
	Allowed  bool
	Code     Code

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de decisão.
//
// O middleware trata erro como best-effort (não derruba a request).
// Contadores de janela nunca passam por aqui.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

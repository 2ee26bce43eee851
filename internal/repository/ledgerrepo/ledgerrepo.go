// Package ledgerrepo implementa o log de eventos do razão de estoque: uma
// sequência apenas-de-apêndice de eventos imutáveis por loja e por tipo
// (ajustes e recebimentos). Sem compactação nem truncamento.
package ledgerrepo

import (
	"context"

	"stockledger/internal/domain"
)

// EventLog é o contrato do log de eventos do razão.
//
// FindByIdempotencyKey devolve o evento previamente registrado para a chave
// (nil quando inédita) — é a base da garantia exactly-once sob retries.
// Append registra um evento aceito; eventos nunca são atualizados ou removidos.
// List devolve os N eventos mais recentes, ordenados por timestamp decrescente.
type EventLog interface {
	FindByIdempotencyKey(ctx context.Context, shop string, kind domain.LedgerEventKind, key string) (*domain.LedgerEvent, error)
	Append(ctx context.Context, event domain.LedgerEvent) error
	List(ctx context.Context, shop string, kind domain.LedgerEventKind, limit int) ([]domain.LedgerEvent, error)
}

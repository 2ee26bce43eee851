package ledgerrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// PostgresEventLog persiste os eventos numa tabela apenas-de-apêndice. A
// unicidade de (shop_id, kind, idempotency_key) é garantida por índice único.
type PostgresEventLog struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewPostgresEventLog cria o log de eventos relacional.
func NewPostgresEventLog(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *PostgresEventLog {
	return &PostgresEventLog{DB: db, DBTimeout: dbTimeout, logger: log}
}

// FindByIdempotencyKey busca o evento previamente registrado para a chave.
func (l *PostgresEventLog) FindByIdempotencyKey(ctx context.Context, shop string, kind domain.LedgerEventKind, key string) (*domain.LedgerEvent, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, l.DBTimeout)
	defer cancel()

	var payload []byte
	err := l.DB.QueryRowContext(ctxTimeout, `
        SELECT payload FROM ledger_events
        WHERE shop_id = $1 AND kind = $2 AND idempotency_key = $3`,
		shop, string(kind), key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewDBError("Falha ao buscar evento por idempotencyKey", err)
	}

	var event domain.LedgerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperror.NewDBError("Evento corrompido no log do razão", err)
	}
	return &event, nil
}

// Append insere o evento; a linha nunca é atualizada ou removida depois.
func (l *PostgresEventLog) Append(ctx context.Context, event domain.LedgerEvent) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, l.DBTimeout)
	defer cancel()

	payload, err := json.Marshal(event)
	if err != nil {
		return apperror.NewDBError("Falha ao serializar o evento", err)
	}

	_, err = l.DB.ExecContext(ctxTimeout, `
        INSERT INTO ledger_events (id, shop_id, kind, idempotency_key, occurred_at, payload)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Shop, string(event.Kind), event.IdempotencyKey, event.Timestamp, payload)
	if err != nil {
		return apperror.NewDBError("Falha ao registrar o evento", err)
	}

	l.logger.Debug("Evento do razão registrado.", map[string]interface{}{
		"shop": event.Shop, "kind": string(event.Kind), "event_id": event.ID,
	})
	return nil
}

// List devolve os limit eventos mais recentes, timestamp decrescente.
func (l *PostgresEventLog) List(ctx context.Context, shop string, kind domain.LedgerEventKind, limit int) ([]domain.LedgerEvent, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, l.DBTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows, err := l.DB.QueryContext(ctxTimeout, `
        SELECT payload FROM ledger_events
        WHERE shop_id = $1 AND kind = $2
        ORDER BY occurred_at DESC
        LIMIT $3`, shop, string(kind), limit)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar eventos", err)
	}
	defer rows.Close()

	events := []domain.LedgerEvent{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, apperror.NewDBError("Falha ao ler evento", err)
		}
		var event domain.LedgerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, apperror.NewDBError("Evento corrompido no log do razão", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar eventos", err)
	}
	return events, nil
}

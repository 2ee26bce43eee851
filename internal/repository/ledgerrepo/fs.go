package ledgerrepo

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// FileEventLog persiste os eventos como JSONL: um evento serializado por
// linha, em DATA_DIR/<loja>/<tipo>.jsonl. O apêndice usa O_APPEND, que é
// atômico para escritas de uma linha no mesmo host.
type FileEventLog struct {
	baseDir string
	logger  logger.Logger
}

// NewFileEventLog cria o log de eventos em arquivos.
func NewFileEventLog(baseDir string, log logger.Logger) *FileEventLog {
	return &FileEventLog{baseDir: baseDir, logger: log}
}

func (l *FileEventLog) path(shop string, kind domain.LedgerEventKind) string {
	return filepath.Join(l.baseDir, shop, string(kind)+".jsonl")
}

// FindByIdempotencyKey varre o log da loja em busca da chave.
func (l *FileEventLog) FindByIdempotencyKey(_ context.Context, shop string, kind domain.LedgerEventKind, key string) (*domain.LedgerEvent, error) {
	events, err := l.readAll(shop, kind)
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].IdempotencyKey == key {
			return &events[i], nil
		}
	}
	return nil, nil
}

// Append grava um evento no final do arquivo da loja.
func (l *FileEventLog) Append(_ context.Context, event domain.LedgerEvent) error {
	path := l.path(event.Shop, event.Kind)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperror.NewIOError("Falha ao preparar o diretório do razão", err)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return apperror.NewIOError("Falha ao serializar o evento", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return apperror.NewIOError("Falha ao abrir o log do razão", err)
	}
	defer file.Close()

	if _, err := file.Write(append(raw, '\n')); err != nil {
		return apperror.NewIOError("Falha ao gravar o evento", err)
	}

	l.logger.Debug("Evento do razão registrado.", map[string]interface{}{
		"shop": event.Shop, "kind": string(event.Kind), "event_id": event.ID,
	})
	return nil
}

// List devolve os limit eventos mais recentes, timestamp decrescente.
func (l *FileEventLog) List(_ context.Context, shop string, kind domain.LedgerEventKind, limit int) ([]domain.LedgerEvent, error) {
	events, err := l.readAll(shop, kind)
	if err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (l *FileEventLog) readAll(shop string, kind domain.LedgerEventKind) ([]domain.LedgerEvent, error) {
	file, err := os.Open(l.path(shop, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.LedgerEvent{}, nil
	}
	if err != nil {
		return nil, apperror.NewIOError("Falha ao abrir o log do razão", err)
	}
	defer file.Close()

	var events []domain.LedgerEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event domain.LedgerEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, apperror.NewIOError("Evento corrompido no log do razão", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperror.NewIOError("Falha ao ler o log do razão", err)
	}
	return events, nil
}

// Package ledgerservice implementa as duas operações do razão de estoque:
// ajustes (deltas com motivo, piso zero) e recebimentos (entradas positivas).
// Ambas são idempotentes por lote via idempotencyKey: a repetição de um lote
// já aceito devolve o relatório original sem tocar o inventário de novo.
package ledgerservice

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/lockfile"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/variantkey"
	"stockledger/internal/repository/inventoryrepo"
	"stockledger/internal/repository/ledgerrepo"
)

const ledgerLockFile = "stock-ledger.lock"

// Service orquestra o protocolo do razão sobre o Inventory Store e o log de
// eventos.
type Service struct {
	store       inventoryrepo.Store
	events      ledgerrepo.EventLog
	lockDir     string
	lockTimeout time.Duration
	lockStale   time.Duration
	logger      logger.Logger
}

// NewService cria e retorna uma nova instância do serviço do razão.
func NewService(store inventoryrepo.Store, events ledgerrepo.EventLog, lockDir string, lockTimeout, lockStale time.Duration, log logger.Logger) *Service {
	return &Service{
		store:       store,
		events:      events,
		lockDir:     lockDir,
		lockTimeout: lockTimeout,
		lockStale:   lockStale,
		logger:      log,
	}
}

// linha normalizada de um lote, comum a ajustes e recebimentos.
type batchLine struct {
	sku       string
	productID string
	attrs     map[string]string
	delta     int
	reason    domain.AdjustmentReason
}

// ApplyStockAdjustment aplica um lote de ajustes de estoque. Deltas negativos
// são truncados no piso zero; cada linha carrega um motivo.
func (s *Service) ApplyStockAdjustment(ctx context.Context, req domain.StockAdjustmentRequest) (*domain.LedgerResult, error) {
	// 1. Validação completa antes de qualquer lock ou acesso a armazenamento.
	if err := req.Validate(); err != nil {
		s.logger.Warn("Lote de ajuste rejeitado na validação.", map[string]interface{}{"shop": req.Shop, "error": err.Error()})
		return nil, err
	}

	lines := make([]batchLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, batchLine{
			sku:       item.SKU,
			productID: item.ProductID,
			attrs:     item.VariantAttributes,
			delta:     item.Delta,
			reason:    item.Reason,
		})
	}

	return s.apply(ctx, domain.KindAdjustment, req.Shop, req.IdempotencyKey, req.Actor, req.Note, req.DryRun, lines, true)
}

// ReceiveStockInflow aplica um lote de recebimentos. Recebimentos são sempre
// entradas positivas; o piso zero nunca é necessário.
func (s *Service) ReceiveStockInflow(ctx context.Context, req domain.StockInflowRequest) (*domain.LedgerResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("Lote de recebimento rejeitado na validação.", map[string]interface{}{"shop": req.Shop, "error": err.Error()})
		return nil, err
	}

	lines := make([]batchLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, batchLine{
			sku:       item.SKU,
			productID: item.ProductID,
			attrs:     item.VariantAttributes,
			delta:     item.Delta,
		})
	}

	return s.apply(ctx, domain.KindInflow, req.Shop, req.IdempotencyKey, req.Actor, req.Note, req.DryRun, lines, false)
}

// ListEvents devolve os eventos mais recentes do razão de uma loja.
func (s *Service) ListEvents(ctx context.Context, shop string, kind domain.LedgerEventKind, limit int) ([]domain.LedgerEvent, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}
	return s.events.List(ctx, shop, kind, limit)
}

// apply executa o protocolo comum aos dois tipos de lote.
func (s *Service) apply(ctx context.Context, kind domain.LedgerEventKind, shop, idempotencyKey string, actor *domain.Actor, note string, dryRun bool, lines []batchLine, floorAtZero bool) (*domain.LedgerResult, error) {
	// 2. Lock por loja, escopado à operação do razão. Este é deliberadamente
	// um arquivo DIFERENTE do lock de escrita do próprio Store: escritas
	// diretas e lotes do razão não se excluem mutuamente, apenas lotes entre
	// si. Comportamento preservado tal qual.
	lockPath := filepath.Join(s.lockDir, shop, ledgerLockFile)
	handle, err := lockfile.Acquire(lockPath, s.lockTimeout, s.lockStale)
	if err != nil {
		return nil, err
	}
	defer lockfile.Release(handle)

	// 3. Checagem de idempotência: lote repetido devolve o relatório original
	// sem nenhuma computação ou persistência adicional.
	if existing, err := s.events.FindByIdempotencyKey(ctx, shop, kind, idempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("Lote repetido detectado; devolvendo relatório original.", map[string]interface{}{
			"shop": shop, "kind": string(kind), "idempotency_key": idempotencyKey, "event_id": existing.ID,
		})
		return &domain.LedgerResult{EventID: existing.ID, Report: existing.Report, Duplicate: true}, nil
	}

	// 4. Carrega o inventário num índice em memória por chave de variante e
	// aplica as linhas em sequência. Qualquer divergência de produto aborta o
	// lote inteiro — nada foi persistido ainda.
	items, err := s.store.Read(ctx, shop)
	if err != nil {
		return nil, err
	}

	working := make([]domain.InventoryItem, len(items))
	copy(working, items)
	index := make(map[string]int, len(working))
	for i := range working {
		index[working[i].VariantKey()] = i
	}

	report := domain.LedgerReport{Items: make([]domain.LineResult, 0, len(lines))}
	for _, line := range lines {
		key := variantkey.Encode(line.sku, line.attrs)

		var prev int
		if idx, exists := index[key]; exists {
			existing := &working[idx]
			if existing.ProductID != line.productID {
				return nil, apperror.NewProductMismatchError(line.sku, key, existing.ProductID, line.productID)
			}
			prev = existing.Quantity
			existing.Quantity = nextQuantity(prev, line.delta, floorAtZero)
			report.Updated++
			s.appendLineResult(&report, line, prev, existing.Quantity)
			continue
		}

		next := nextQuantity(0, line.delta, floorAtZero)
		working = append(working, domain.InventoryItem{
			SKU:               line.sku,
			ProductID:         line.productID,
			VariantAttributes: line.attrs,
			Quantity:          next,
		})
		index[key] = len(working) - 1
		report.Created++
		s.appendLineResult(&report, line, 0, next)
	}

	// 5. Dry-run: devolve o relatório computado sem persistir nem registrar.
	if dryRun {
		return &domain.LedgerResult{Report: report, DryRun: true}, nil
	}

	// 6. Persiste a coleção resultante e registra o evento imutável.
	if err := s.store.Write(ctx, shop, working); err != nil {
		return nil, err
	}

	event := domain.LedgerEvent{
		ID:             uuid.NewString(),
		Kind:           kind,
		Shop:           shop,
		IdempotencyKey: idempotencyKey,
		Timestamp:      time.Now().UTC(),
		Actor:          actor,
		Note:           note,
		Items:          report.Items,
		Report:         report,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("Lote do razão aplicado com sucesso.", map[string]interface{}{
		"shop": shop, "kind": string(kind), "event_id": event.ID,
		"created": report.Created, "updated": report.Updated,
	})
	return &domain.LedgerResult{EventID: event.ID, Report: report}, nil
}

func (s *Service) appendLineResult(report *domain.LedgerReport, line batchLine, prev, next int) {
	report.Items = append(report.Items, domain.LineResult{
		SKU:               line.sku,
		ProductID:         line.productID,
		VariantAttributes: line.attrs,
		Delta:             line.delta,
		PreviousQuantity:  prev,
		NextQuantity:      next,
		Reason:            line.reason,
	})
}

// nextQuantity aplica o delta; ajustes truncam no piso zero, recebimentos não
// precisam de piso (delta sempre positivo).
func nextQuantity(prev, delta int, floorAtZero bool) int {
	next := prev + delta
	if floorAtZero && next < 0 {
		return 0
	}
	return next
}

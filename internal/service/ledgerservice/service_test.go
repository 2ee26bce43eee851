package ledgerservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/inventoryrepo"
	"stockledger/internal/repository/ledgerrepo"
	"stockledger/internal/service/ledgerservice"
)

// newTestService monta o serviço sobre os backends de arquivo reais, num
// diretório temporário. O protocolo inteiro (lock, idempotência, persistência)
// roda de verdade.
func newTestService(t *testing.T) (*ledgerservice.Service, *inventoryrepo.FileStore, *ledgerrepo.FileEventLog) {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewLogger("error")

	store := inventoryrepo.NewFileStore(dir, 2*time.Second, time.Minute, 0, nil, log)
	events := ledgerrepo.NewFileEventLog(dir, log)
	svc := ledgerservice.NewService(store, events, dir, 2*time.Second, time.Minute, log)
	return svc, store, events
}

func adjustment(shop, key string, items ...domain.AdjustmentLine) domain.StockAdjustmentRequest {
	return domain.StockAdjustmentRequest{
		Shop:           shop,
		IdempotencyKey: key,
		Items:          items,
	}
}

// TestApplyStockAdjustment_CreatesAndUpdates verifica a contagem de linhas
// criadas vs atualizadas num lote misto.
func TestApplyStockAdjustment_CreatesAndUpdates(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "loja-a", []domain.InventoryItem{
		{SKU: "tent-2p", ProductID: "prod-1", Quantity: 10},
	}))

	req := adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: -3, Reason: domain.ReasonDamage},
		domain.AdjustmentLine{SKU: "bike", ProductID: "prod-2", Delta: 2, Reason: domain.ReasonRecount},
	)

	result, err := svc.ApplyStockAdjustment(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, 1, result.Report.Updated)
	assert.Equal(t, 1, result.Report.Created)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	require.Len(t, items, 2)

	byKey := map[string]int{}
	for _, item := range items {
		byKey[item.VariantKey()] = item.Quantity
	}
	assert.Equal(t, 7, byKey["tent-2p"])
	assert.Equal(t, 2, byKey["bike"])
}

// TestApplyStockAdjustment_FloorsAtZero verifica que um delta negativo maior
// que o saldo trava no piso zero em vez de ficar negativo.
func TestApplyStockAdjustment_FloorsAtZero(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "loja-a", []domain.InventoryItem{
		{SKU: "tent-2p", ProductID: "prod-1", Quantity: 5},
	}))

	result, err := svc.ApplyStockAdjustment(ctx, adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: -10, Reason: domain.ReasonLoss},
	))
	require.NoError(t, err)

	require.Len(t, result.Report.Items, 1)
	assert.Equal(t, 5, result.Report.Items[0].PreviousQuantity)
	assert.Equal(t, 0, result.Report.Items[0].NextQuantity)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	assert.Equal(t, 0, items[0].Quantity)
}

// TestApplyStockAdjustment_IdempotentReplay verifica que repetir a mesma
// idempotencyKey devolve o relatório original sem reaplicar os deltas.
func TestApplyStockAdjustment_IdempotentReplay(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	req := adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: 5, Reason: domain.ReasonRecount},
	)

	first, err := svc.ApplyStockAdjustment(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.ApplyStockAdjustment(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, first.Report, second.Report)

	// O delta não pode ter sido aplicado duas vezes.
	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

// TestApplyStockAdjustment_ProductMismatchAbortsBatch verifica que divergência
// de produto numa linha aborta o lote inteiro, sem escrita parcial nem evento.
func TestApplyStockAdjustment_ProductMismatchAbortsBatch(t *testing.T) {
	svc, store, events := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "loja-a", []domain.InventoryItem{
		{SKU: "tent-2p", ProductID: "prod-1", Quantity: 10},
	}))

	// A primeira linha seria válida; a segunda diverge no produto.
	result, err := svc.ApplyStockAdjustment(ctx, adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "bike", ProductID: "prod-2", Delta: 1, Reason: domain.ReasonRecount},
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-OUTRO", Delta: -1, Reason: domain.ReasonDamage},
	))

	require.Error(t, err)
	assert.Nil(t, result)

	var mismatch *apperror.ProductMismatchError
	assert.ErrorAs(t, err, &mismatch)

	// Nada persistido: nem a linha válida, nem o evento.
	items, readErr := store.Read(ctx, "loja-a")
	require.NoError(t, readErr)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)

	logged, listErr := events.List(ctx, "loja-a", domain.KindAdjustment, 0)
	require.NoError(t, listErr)
	assert.Empty(t, logged)
}

// TestApplyStockAdjustment_DryRun verifica que o dry-run computa o relatório
// completo mas não persiste nem registra evento.
func TestApplyStockAdjustment_DryRun(t *testing.T) {
	svc, store, events := newTestService(t)
	ctx := context.Background()

	req := adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: 5, Reason: domain.ReasonRecount},
	)
	req.DryRun = true

	result, err := svc.ApplyStockAdjustment(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Empty(t, result.EventID)
	assert.Equal(t, 1, result.Report.Created)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	assert.Empty(t, items)

	logged, err := events.List(ctx, "loja-a", domain.KindAdjustment, 0)
	require.NoError(t, err)
	assert.Empty(t, logged)

	// A mesma chave continua livre para o lote real.
	req.DryRun = false
	real, err := svc.ApplyStockAdjustment(ctx, req)
	require.NoError(t, err)
	assert.False(t, real.Duplicate)
}

// TestApplyStockAdjustment_InvalidReason verifica a rejeição de motivo fora do
// vocabulário.
func TestApplyStockAdjustment_InvalidReason(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ApplyStockAdjustment(context.Background(), adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: 1, Reason: "vibes"},
	))
	assert.Error(t, err)
}

// TestReceiveStockInflow_RejectsNonPositiveDelta verifica que recebimentos
// exigem delta estritamente positivo.
func TestReceiveStockInflow_RejectsNonPositiveDelta(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, delta := range []int{0, -1} {
		_, err := svc.ReceiveStockInflow(context.Background(), domain.StockInflowRequest{
			Shop:           "loja-a",
			IdempotencyKey: "batch-1",
			Items: []domain.InflowLine{
				{SKU: "tent-2p", ProductID: "prod-1", Delta: delta},
			},
		})
		assert.Error(t, err, "delta %d deveria ser rejeitado", delta)
	}
}

// TestReceiveStockInflow_AppendsToInventory verifica o caminho feliz do
// recebimento e o isolamento de idempotência entre os dois tipos de evento.
func TestReceiveStockInflow_AppendsToInventory(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ReceiveStockInflow(ctx, domain.StockInflowRequest{
		Shop:           "loja-a",
		IdempotencyKey: "batch-1",
		Items: []domain.InflowLine{
			{SKU: "tent-2p", ProductID: "prod-1", Delta: 4},
		},
	})
	require.NoError(t, err)

	// Mesma idempotencyKey, mas tipo de evento diferente: não é replay.
	result, err := svc.ApplyStockAdjustment(ctx, adjustment("loja-a", "batch-1",
		domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: -1, Reason: domain.ReasonDamage},
	))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

// TestListEvents_NewestFirst verifica a ordenação decrescente por timestamp e
// o recorte por limite.
func TestListEvents_NewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, key := range []string{"batch-1", "batch-2", "batch-3"} {
		_, err := svc.ApplyStockAdjustment(ctx, adjustment("loja-a", key,
			domain.AdjustmentLine{SKU: "tent-2p", ProductID: "prod-1", Delta: 1, Reason: domain.ReasonRecount},
		))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	events, err := svc.ListEvents(ctx, "loja-a", domain.KindAdjustment, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "batch-3", events[0].IdempotencyKey)
	assert.Equal(t, "batch-2", events[1].IdempotencyKey)
}

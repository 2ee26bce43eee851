package routingservice_test

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
	"stockledger/internal/repository/routingrepo"
	"stockledger/internal/service/routingservice"
)

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T) (*routingservice.Service, *inventoryrepo.FileStore, *routingrepo.FileRoutingRepository) {
	t.Helper()
	dir := t.TempDir()
	log := logger.NewLogger("error")
	store := inventoryrepo.NewFileStore(dir, 2*time.Second, time.Minute, 0, nil, log)
	repo := routingrepo.NewFileRoutingRepository(dir, "central", 2*time.Second, time.Minute, log)
	return routingservice.NewService(store, repo, "central", log), store, repo
}

// TestAllocations_PriorityAndModes verifica a ordem de prioridade e a
// semântica dos três modos: fixed e percentage consomem o restante, all
// recebe o que sobrou sem descontar.
func TestAllocations_PriorityAndModes(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "caiaque", ProductID: "prod-1", Quantity: 10},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "caiaque", nil, []domain.InventoryRouting{
		{ShopID: "loja-c", AllocationMode: domain.AllocationAll, Priority: 0},
		{ShopID: "loja-a", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(4), Priority: 10},
		{ShopID: "loja-b", AllocationMode: domain.AllocationPercentage, AllocatedPercent: intPtr(50), Priority: 5},
	}))

	allocations, err := svc.Allocations(ctx, "caiaque", nil)
	require.NoError(t, err)
	require.Len(t, allocations, 3)

	// loja-a: 4 fixos (restam 6); loja-b: 50% de 10 = 5 (resta 1); loja-c: o 1 restante.
	assert.Equal(t, "loja-a", allocations[0].ShopID)
	assert.Equal(t, 4, allocations[0].AllocatedQuantity)
	assert.Equal(t, "loja-b", allocations[1].ShopID)
	assert.Equal(t, 5, allocations[1].AllocatedQuantity)
	assert.Equal(t, "loja-c", allocations[2].ShopID)
	assert.Equal(t, 1, allocations[2].AllocatedQuantity)
}

// TestAllocations_PercentageCappedByRemaining verifica que o percentual é
// calculado sobre o total mas limitado ao que ainda está disponível.
func TestAllocations_PercentageCappedByRemaining(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "tenda", ProductID: "prod-2", Quantity: 10},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "tenda", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(8), Priority: 2},
		{ShopID: "loja-b", AllocationMode: domain.AllocationPercentage, AllocatedPercent: intPtr(50), Priority: 1},
	}))

	allocations, err := svc.Allocations(ctx, "tenda", nil)
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, 8, allocations[0].AllocatedQuantity)
	// 50% de 10 seria 5, mas só restam 2.
	assert.Equal(t, 2, allocations[1].AllocatedQuantity)
}

// TestAllocations_AllModeDoesNotDeduct verifica que várias lojas em modo all
// enxergam a quantidade inteira.
func TestAllocations_AllModeDoesNotDeduct(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "bike", ProductID: "prod-3", Quantity: 7},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "bike", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationAll, Priority: 1},
		{ShopID: "loja-b", AllocationMode: domain.AllocationAll, Priority: 0},
	}))

	allocations, err := svc.Allocations(ctx, "bike", nil)
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, 7, allocations[0].AllocatedQuantity)
	assert.Equal(t, 7, allocations[1].AllocatedQuantity)
}

// TestAllocations_ZeroAllocationOmitted verifica que alocação calculada em
// zero não aparece no resultado.
func TestAllocations_ZeroAllocationOmitted(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "bike", ProductID: "prod-3", Quantity: 5},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "bike", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(0), Priority: 1},
	}))

	allocations, err := svc.Allocations(ctx, "bike", nil)
	require.NoError(t, err)
	assert.Empty(t, allocations)
}

// TestReplaceRoutings_RequiresCentralItem verifica que roteamento só pode ser
// declarado para variante existente no estoque central.
func TestReplaceRoutings_RequiresCentralItem(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ReplaceRoutings(context.Background(), "fantasma", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationAll},
	})

	var appErr apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Category())
}

// TestSyncShop_CreatesAndUpdates verifica que a sincronização cria itens
// inéditos e sobrescreve a quantidade dos existentes.
func TestSyncShop_CreatesAndUpdates(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "caiaque", ProductID: "prod-1", Quantity: 10},
		{SKU: "tenda", ProductID: "prod-2", Quantity: 4},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "caiaque", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(3)},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "tenda", nil, []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationAll},
	}))

	// caiaque já existe na loja com outra quantidade; tenda é inédita.
	require.NoError(t, store.Write(ctx, "loja-a", []domain.InventoryItem{
		{SKU: "caiaque", ProductID: "prod-1", Quantity: 1},
	}))

	result, err := svc.SyncShop(ctx, "loja-a")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Errors)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	byKey := make(map[string]int, len(items))
	for _, item := range items {
		byKey[item.SKU] = item.Quantity
	}
	assert.Equal(t, 3, byKey["caiaque"])
	assert.Equal(t, 4, byKey["tenda"])
}

// TestSyncShop_DeletesOrphans verifica que item roteado cujo registro central
// desapareceu é removido do inventário da loja.
func TestSyncShop_DeletesOrphans(t *testing.T) {
	svc, store, repo := newTestService(t)
	ctx := context.Background()

	// Roteamento declarado direto no repositório: o registro central já não existe.
	require.NoError(t, repo.ReplaceForKey(ctx, "fantasma", []domain.InventoryRouting{
		{ShopID: "loja-a", AllocationMode: domain.AllocationAll},
	}))
	require.NoError(t, store.Write(ctx, "loja-a", []domain.InventoryItem{
		{SKU: "fantasma", ProductID: "prod-9", Quantity: 2},
	}))

	result, err := svc.SyncShop(ctx, "loja-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Zero(t, result.Synced)

	items, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	assert.Empty(t, items)
}

// TestSyncAllShops_CoversEveryRoutedShop verifica a sincronização de todas as
// lojas roteadas, em ordem determinística.
func TestSyncAllShops_CoversEveryRoutedShop(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "central", []domain.InventoryItem{
		{SKU: "caiaque", ProductID: "prod-1", Quantity: 6},
	}))
	require.NoError(t, svc.ReplaceRoutings(ctx, "caiaque", nil, []domain.InventoryRouting{
		{ShopID: "loja-b", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(2), Priority: 1},
		{ShopID: "loja-a", AllocationMode: domain.AllocationFixed, AllocatedQuantity: intPtr(3), Priority: 2},
	}))

	results, err := svc.SyncAllShops(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "loja-a", results[0].ShopID)
	assert.Equal(t, "loja-b", results[1].ShopID)

	itemsA, err := store.Read(ctx, "loja-a")
	require.NoError(t, err)
	require.Len(t, itemsA, 1)
	assert.Equal(t, 3, itemsA[0].Quantity)

	itemsB, err := store.Read(ctx, "loja-b")
	require.NoError(t, err)
	require.Len(t, itemsB, 1)
	assert.Equal(t, 2, itemsB[0].Quantity)
}

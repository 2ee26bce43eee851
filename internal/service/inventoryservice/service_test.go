package inventoryservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/inventoryrepo"
	"stockledger/internal/service/inventoryservice"
)

// MockStore é uma implementação mock da interface inventoryrepo.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Read(ctx context.Context, shop string) ([]domain.InventoryItem, error) {
	args := m.Called(ctx, shop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InventoryItem), args.Error(1)
}

func (m *MockStore) Write(ctx context.Context, shop string, items []domain.InventoryItem) error {
	args := m.Called(ctx, shop, items)
	return args.Error(0)
}

func (m *MockStore) Update(ctx context.Context, shop, sku string, attrs map[string]string, mutate inventoryrepo.MutateFunc) (*domain.InventoryItem, error) {
	args := m.Called(ctx, shop, sku, attrs, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}

// TestListInventory_Passthrough verifica o repasse direto ao Store.
func TestListInventory_Passthrough(t *testing.T) {
	store := new(MockStore)
	svc := inventoryservice.NewService(store, logger.NewLogger("error"))

	expected := []domain.InventoryItem{{SKU: "tent-2p", Quantity: 3}}
	store.On("Read", mock.Anything, "loja-a").Return(expected, nil)

	items, err := svc.ListInventory(context.Background(), "loja-a")

	assert.NoError(t, err)
	assert.Equal(t, expected, items)
	store.AssertExpectations(t)
}

// TestReplaceInventory_PropagatesStoreError verifica que erros do Store sobem
// sem tradução.
func TestReplaceInventory_PropagatesStoreError(t *testing.T) {
	store := new(MockStore)
	svc := inventoryservice.NewService(store, logger.NewLogger("error"))

	boom := errors.New("disco cheio")
	store.On("Write", mock.Anything, "loja-a", mock.Anything).Return(boom)

	err := svc.ReplaceInventory(context.Background(), "loja-a", []domain.InventoryItem{{SKU: "x", Quantity: 1}})

	assert.ErrorIs(t, err, boom)
}

// TestSetQuantity_MutationSemantics exercita a função de mutação que o
// serviço entrega ao Store: criação, atualização e remoção por quantidade
// negativa.
func TestSetQuantity_MutationSemantics(t *testing.T) {
	store := new(MockStore)
	svc := inventoryservice.NewService(store, logger.NewLogger("error"))

	var captured inventoryrepo.MutateFunc
	store.On("Update", mock.Anything, "loja-a", "bike", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(4).(inventoryrepo.MutateFunc)
		}).
		Return(&domain.InventoryItem{SKU: "bike", Quantity: 4}, nil)

	_, err := svc.SetQuantity(context.Background(), "loja-a", "bike", nil, "prod-1", 4)
	require.NoError(t, err)
	require.NotNil(t, captured)

	// Item ausente: a mutação cria com a quantidade pedida.
	created := captured(nil)
	require.NotNil(t, created)
	assert.Equal(t, "bike", created.SKU)
	assert.Equal(t, "prod-1", created.ProductID)
	assert.Equal(t, 4, created.Quantity)

	// Item existente: só a quantidade muda.
	existing := &domain.InventoryItem{SKU: "bike", ProductID: "prod-1", Quantity: 9}
	updated := captured(existing)
	require.NotNil(t, updated)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, 9, existing.Quantity, "o original não pode ser mutado")
}

// TestSetQuantity_NegativeRemoves verifica que quantidade negativa remove o
// item (mutação devolve nil).
func TestSetQuantity_NegativeRemoves(t *testing.T) {
	store := new(MockStore)
	svc := inventoryservice.NewService(store, logger.NewLogger("error"))

	var captured inventoryrepo.MutateFunc
	store.On("Update", mock.Anything, "loja-a", "bike", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(4).(inventoryrepo.MutateFunc)
		}).
		Return(nil, nil)

	result, err := svc.SetQuantity(context.Background(), "loja-a", "bike", nil, "prod-1", -1)
	require.NoError(t, err)
	assert.Nil(t, result)

	require.NotNil(t, captured)
	assert.Nil(t, captured(&domain.InventoryItem{SKU: "bike", Quantity: 2}))
}

package inventoryrepo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/inventoryrepo"
)

// newPostgresStore conecta ao banco apontado por DATABASE_URL. Sem a variável
// (ou sem banco acessível) o teste é pulado: é um teste de integração, não
// unitário. As migrações (cmd/migrate) precisam ter rodado antes.
func newPostgresStore(t *testing.T) *inventoryrepo.PostgresStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	db, err := database.NewPostgresDB(dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return inventoryrepo.NewPostgresStore(db, nil, 5*time.Second, 10*time.Second, 0, nil, logger.NewLogger("error"))
}

// TestPostgres_WriteReadRoundTrip verifica a substituição e releitura da
// coleção no backend relacional.
func TestPostgres_WriteReadRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	shop := "teste-loja-" + t.Name()

	t.Cleanup(func() { _ = store.Write(ctx, shop, nil) })

	items := []domain.InventoryItem{
		{SKU: "tent-2p", ProductID: "prod-1", Quantity: 4},
		{SKU: "tent-2p", ProductID: "prod-1", VariantAttributes: map[string]string{"cor": "verde"}, Quantity: 2},
	}
	require.NoError(t, store.Write(ctx, shop, items))

	got, err := store.Read(ctx, shop)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// TestPostgres_UpdateCreatesAndDeletes verifica o ciclo criação/remoção via o
// primitivo Update com SELECT ... FOR UPDATE.
func TestPostgres_UpdateCreatesAndDeletes(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	shop := "teste-loja-" + t.Name()

	t.Cleanup(func() { _ = store.Write(ctx, shop, nil) })

	created, err := store.Update(ctx, shop, "bike", nil, func(current *domain.InventoryItem) *domain.InventoryItem {
		require.Nil(t, current)
		return &domain.InventoryItem{ProductID: "prod-1", Quantity: 3}
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, 3, created.Quantity)

	removed, err := store.Update(ctx, shop, "bike", nil, func(*domain.InventoryItem) *domain.InventoryItem {
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, removed)

	got, err := store.Read(ctx, shop)
	require.NoError(t, err)
	assert.Empty(t, got)
}

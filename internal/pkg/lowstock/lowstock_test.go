package lowstock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/lowstock"
)

func intPtr(v int) *int { return &v }

// TestScan_LimiarDoItemPrevalece verifica que o limiar do item prevalece sobre
// o padrão da loja.
func TestScan_LimiarDoItemPrevalece(t *testing.T) {
	items := []domain.InventoryItem{
		{SKU: "a", Quantity: 3, LowStockThreshold: intPtr(5)}, // abaixo do próprio limiar
		{SKU: "b", Quantity: 3, LowStockThreshold: intPtr(1)}, // acima do próprio limiar
		{SKU: "c", Quantity: 3},                               // usa o padrão (10)
	}

	low := lowstock.Scan(items, 10)

	skus := make([]string, 0, len(low))
	for _, item := range low {
		skus = append(skus, item.SKU)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, skus)
}

// TestScan_PadraoDesativado verifica que padrão <= 0 desativa o gatilho para
// itens sem limiar próprio, mas não para quem o define.
func TestScan_PadraoDesativado(t *testing.T) {
	items := []domain.InventoryItem{
		{SKU: "a", Quantity: 0},
		{SKU: "b", Quantity: 0, LowStockThreshold: intPtr(2)},
	}

	low := lowstock.Scan(items, 0)

	assert.Len(t, low, 1)
	assert.Equal(t, "b", low[0].SKU)
}

// TestScan_LimiteInclusivo verifica que quantidade igual ao limiar dispara.
func TestScan_LimiteInclusivo(t *testing.T) {
	items := []domain.InventoryItem{{SKU: "a", Quantity: 2, LowStockThreshold: intPtr(2)}}

	assert.Len(t, lowstock.Scan(items, 0), 1)
}

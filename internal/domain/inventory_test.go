package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/domain"
)

func intPtr(v int) *int { return &v }

// TestInventoryItemValidate cobre as regras de forma de um item.
func TestInventoryItemValidate(t *testing.T) {
	valid := domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1", Quantity: 0}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		item domain.InventoryItem
	}{
		{"sku vazio", domain.InventoryItem{ProductID: "prod-1", Quantity: 1}},
		{"productId vazio", domain.InventoryItem{SKU: "tent-2p", Quantity: 1}},
		{"quantidade negativa", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1", Quantity: -1}},
		{"limiar negativo", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1", LowStockThreshold: intPtr(-1)}},
		{"desgaste negativo", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1", WearCount: intPtr(-3)}},
		{"atributo com '#'", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1",
			VariantAttributes: map[string]string{"cor#": "azul"}}},
		{"atributo com '|'", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1",
			VariantAttributes: map[string]string{"cor": "az|ul"}}},
		{"atributo com ':'", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1",
			VariantAttributes: map[string]string{"cor": "az:ul"}}},
		{"valor de atributo vazio", domain.InventoryItem{SKU: "tent-2p", ProductID: "prod-1",
			VariantAttributes: map[string]string{"cor": ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.item.Validate())
		})
	}
}

// TestValidateInventoryCollection_DuplicateKey verifica que a mesma variante
// com os atributos em ordem diferente ainda conta como duplicata.
func TestValidateInventoryCollection_DuplicateKey(t *testing.T) {
	items := []domain.InventoryItem{
		{SKU: "caiaque", ProductID: "prod-1", VariantAttributes: map[string]string{"a": "1", "b": "2"}, Quantity: 1},
		{SKU: "caiaque", ProductID: "prod-1", VariantAttributes: map[string]string{"b": "2", "a": "1"}, Quantity: 2},
	}
	assert.Error(t, domain.ValidateInventoryCollection(items))
}

// TestValidateShopName verifica a defesa contra travessia de diretório.
func TestValidateShopName(t *testing.T) {
	assert.NoError(t, domain.ValidateShopName("loja-a"))

	for _, shop := range []string{"", "  ", "a/b", `a\b`, ".", ".."} {
		assert.Error(t, domain.ValidateShopName(shop), "loja %q deveria ser rejeitada", shop)
	}
}

// TestWearDefaultsToZero verifica o default do contador de uso.
func TestWearDefaultsToZero(t *testing.T) {
	item := domain.InventoryItem{SKU: "bike", ProductID: "prod-1"}
	assert.Equal(t, 0, item.Wear())

	item.WearCount = intPtr(7)
	assert.Equal(t, 7, item.Wear())
}

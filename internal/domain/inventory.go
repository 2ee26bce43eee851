package domain

import (
	"fmt"
	"strings"

	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/variantkey"
)

// InventoryItem representa uma linha de estoque de uma variante (SKU + atributos)
// dentro da coleção de uma loja. A identidade é o par (SKU, VariantAttributes);
// dois itens com a mesma chave de variante nunca podem coexistir na mesma coleção.
//
// Os campos opcionais são ponteiros: nil significa "não definido". Para
// WearAndTearLimit e MaintenanceCycle, nil significa "ilimitado/infinito".
type InventoryItem struct {
	SKU               string            `json:"sku"`
	ProductID         string            `json:"productId"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	Quantity          int               `json:"quantity"`
	LowStockThreshold *int              `json:"lowStockThreshold,omitempty"`
	WearCount         *int              `json:"wearCount,omitempty"`
	WearAndTearLimit  *int              `json:"wearAndTearLimit,omitempty"`
	MaintenanceCycle  *int              `json:"maintenanceCycle,omitempty"`
}

// VariantKey retorna a chave determinística da variante deste item.
func (i InventoryItem) VariantKey() string {
	return variantkey.Encode(i.SKU, i.VariantAttributes)
}

// Wear retorna o contador de uso atual (0 quando não definido).
func (i InventoryItem) Wear() int {
	if i.WearCount == nil {
		return 0
	}
	return *i.WearCount
}

// Validate verifica a forma de um item de inventário.
// Regras: SKU e ProductID obrigatórios; Quantity >= 0; contadores opcionais >= 0;
// atributos de variante não podem conter os caracteres reservados do codec
// ('#', '|', ':') — decisão explícita para que encode/decode nunca quebre.
func (i InventoryItem) Validate() error {
	if strings.TrimSpace(i.SKU) == "" {
		return apperror.NewValidationError("O campo 'sku' é obrigatório.")
	}
	if strings.TrimSpace(i.ProductID) == "" {
		return apperror.NewValidationError(fmt.Sprintf("O campo 'productId' é obrigatório (sku %s).", i.SKU))
	}
	if i.Quantity < 0 {
		return apperror.NewValidationError(fmt.Sprintf("A quantidade do item %s não pode ser negativa.", i.SKU))
	}
	for name, v := range map[string]*int{
		"lowStockThreshold": i.LowStockThreshold,
		"wearCount":         i.WearCount,
		"wearAndTearLimit":  i.WearAndTearLimit,
		"maintenanceCycle":  i.MaintenanceCycle,
	} {
		if v != nil && *v < 0 {
			return apperror.NewValidationError(fmt.Sprintf("O campo '%s' do item %s não pode ser negativo.", name, i.SKU))
		}
	}
	if err := ValidateVariantAttributes(i.VariantAttributes); err != nil {
		return err
	}
	return nil
}

// ValidateVariantAttributes rejeita chaves/valores vazios ou contendo os
// caracteres reservados do codec de chave de variante.
func ValidateVariantAttributes(attrs map[string]string) error {
	for k, v := range attrs {
		if strings.TrimSpace(k) == "" {
			return apperror.NewValidationError("Atributo de variante com chave vazia.")
		}
		if v == "" {
			return apperror.NewValidationError(fmt.Sprintf("Atributo de variante '%s' com valor vazio.", k))
		}
		if strings.ContainsAny(k, variantkey.Reserved) || strings.ContainsAny(v, variantkey.Reserved) {
			return apperror.NewValidationError(fmt.Sprintf(
				"Atributo de variante '%s' contém caractere reservado (%s).", k, variantkey.Reserved))
		}
	}
	return nil
}

// ValidateInventoryCollection valida todos os itens de uma coleção e garante a
// unicidade do par (SKU, VariantAttributes). Qualquer falha rejeita o lote
// inteiro: a escrita é tudo-ou-nada.
func ValidateInventoryCollection(items []InventoryItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		key := item.VariantKey()
		if _, dup := seen[key]; dup {
			return apperror.NewValidationError(fmt.Sprintf("Chave de variante duplicada na coleção: %s.", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateShopName garante que o identificador da loja é utilizável como
// segmento de diretório (backend de arquivos) e como chave de particionamento.
func ValidateShopName(shop string) error {
	if strings.TrimSpace(shop) == "" {
		return apperror.NewValidationError("O identificador da loja é obrigatório.")
	}
	if strings.ContainsAny(shop, "/\\") || shop == "." || shop == ".." {
		return apperror.NewValidationError(fmt.Sprintf("Identificador de loja inválido: %q.", shop))
	}
	return nil
}

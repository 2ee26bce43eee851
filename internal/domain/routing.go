package domain

import (
	"fmt"

	apperror "stockledger/internal/errors"
)

// AllocationMode define como a quantidade do estoque central é distribuída
// para uma loja através de um roteamento.
type AllocationMode string

const (
	// AllocationAll entrega à loja toda a quantidade disponível, sem
	// descontar do restante (várias lojas podem ver o estoque inteiro).
	AllocationAll AllocationMode = "all"
	// AllocationFixed entrega uma quantidade fixa, limitada ao disponível.
	AllocationFixed AllocationMode = "fixed"
	// AllocationPercentage entrega um percentual da quantidade total,
	// arredondado para baixo e limitado ao disponível.
	AllocationPercentage AllocationMode = "percentage"
)

// InventoryRouting declara que uma variante do estoque central abastece uma
// loja. Roteamentos de maior prioridade são atendidos primeiro; modos fixed e
// percentage descontam do restante, o modo all não.
type InventoryRouting struct {
	ShopID            string         `json:"shopId"`
	AllocationMode    AllocationMode `json:"allocationMode"`
	AllocatedQuantity *int           `json:"allocatedQuantity,omitempty"`
	AllocatedPercent  *int           `json:"allocatedPercent,omitempty"`
	Priority          int            `json:"priority"`
}

// Validate verifica a forma de um roteamento.
// Regras: loja válida; modo conhecido (vazio vale como "all"); fixed exige
// allocatedQuantity >= 0; percentage exige allocatedPercent entre 0 e 100.
func (r InventoryRouting) Validate() error {
	if err := ValidateShopName(r.ShopID); err != nil {
		return err
	}
	switch r.AllocationMode {
	case "", AllocationAll:
		// Sem campos obrigatórios adicionais.
	case AllocationFixed:
		if r.AllocatedQuantity == nil || *r.AllocatedQuantity < 0 {
			return apperror.NewValidationError(fmt.Sprintf("Roteamento fixed para a loja %s exige 'allocatedQuantity' >= 0.", r.ShopID))
		}
	case AllocationPercentage:
		if r.AllocatedPercent == nil || *r.AllocatedPercent < 0 || *r.AllocatedPercent > 100 {
			return apperror.NewValidationError(fmt.Sprintf("Roteamento percentage para a loja %s exige 'allocatedPercent' entre 0 e 100.", r.ShopID))
		}
	default:
		return apperror.NewValidationError(fmt.Sprintf("Modo de alocação desconhecido: %s.", r.AllocationMode))
	}
	return nil
}

// Mode normaliza o modo de alocação (vazio vale como "all").
func (r InventoryRouting) Mode() AllocationMode {
	if r.AllocationMode == "" {
		return AllocationAll
	}
	return r.AllocationMode
}

// ShopAllocation é o resultado do cálculo de alocação: quanto de uma variante
// central uma loja deve receber.
type ShopAllocation struct {
	ShopID            string            `json:"shopId"`
	SKU               string            `json:"sku"`
	VariantKey        string            `json:"variantKey"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	ProductID         string            `json:"productId"`
	AllocatedQuantity int               `json:"allocatedQuantity"`
}

// SyncError registra a falha de sincronização de uma variante, sem abortar o
// restante da sincronização.
type SyncError struct {
	SKU        string `json:"sku"`
	VariantKey string `json:"variantKey"`
	Error      string `json:"error"`
}

// SyncResult resume uma sincronização do estoque central para uma loja.
type SyncResult struct {
	ShopID  string      `json:"shopId"`
	Synced  int         `json:"synced"`
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Deleted int         `json:"deleted"`
	Errors  []SyncError `json:"errors,omitempty"`
}

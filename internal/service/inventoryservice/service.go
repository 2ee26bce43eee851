// Package inventoryservice expõe as operações diretas sobre a coleção de
// inventário de uma loja para a camada de API. Atenção: diferente das
// operações do razão, escrita e mutação diretas NÃO são idempotentes — o
// chamador não deve repeti-las cegamente sem deduplicação própria.
package inventoryservice

import (
	"context"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/inventoryrepo"
)

// Service é a camada de lógica de negócio sobre o Inventory Store.
type Service struct {
	store  inventoryrepo.Store
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do serviço de inventário.
func NewService(store inventoryrepo.Store, log logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// ListInventory devolve a coleção inteira da loja (vazia quando inédita).
func (s *Service) ListInventory(ctx context.Context, shop string) ([]domain.InventoryItem, error) {
	items, err := s.store.Read(ctx, shop)
	if err != nil {
		s.logger.Error("Falha ao listar o inventário.", err)
		return nil, err
	}
	return items, nil
}

// ReplaceInventory substitui a coleção da loja de forma atômica.
// A validação do Store rejeita o lote inteiro antes de persistir.
func (s *Service) ReplaceInventory(ctx context.Context, shop string, items []domain.InventoryItem) error {
	s.logger.Debug("Substituindo o inventário da loja.", map[string]interface{}{
		"shop": shop, "items": len(items),
	})
	if err := s.store.Write(ctx, shop, items); err != nil {
		s.logger.Error("Falha ao substituir o inventário.", err)
		return err
	}
	return nil
}

// SetQuantity ajusta a quantidade absoluta de uma variante via o primitivo
// Update do Store. Quantidade negativa remove o item (delete-por-ausência).
func (s *Service) SetQuantity(ctx context.Context, shop, sku string, attrs map[string]string, productID string, quantity int) (*domain.InventoryItem, error) {
	result, err := s.store.Update(ctx, shop, sku, attrs, func(current *domain.InventoryItem) *domain.InventoryItem {
		if quantity < 0 {
			return nil
		}
		if current == nil {
			return &domain.InventoryItem{
				SKU:               sku,
				ProductID:         productID,
				VariantAttributes: attrs,
				Quantity:          quantity,
			}
		}
		next := *current
		next.Quantity = quantity
		return &next
	})
	if err != nil {
		s.logger.Error("Falha ao ajustar a quantidade.", err)
		return nil, err
	}
	return result, nil
}

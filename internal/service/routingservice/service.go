// Package routingservice implementa a distribuição do estoque central para as
// lojas. O estoque central é uma coleção comum do Inventory Store (a loja
// configurada como central); os roteamentos declaram quem recebe o quê, e a
// sincronização materializa as alocações calculadas no inventário das lojas.
package routingservice

import (
	"context"
	"sort"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/variantkey"
	"stockledger/internal/repository/inventoryrepo"
)

// RoutingRepository define o contrato de persistência dos roteamentos,
// indexados pela chave de variante.
type RoutingRepository interface {
	All(ctx context.Context) (map[string][]domain.InventoryRouting, error)
	ListForKey(ctx context.Context, key string) ([]domain.InventoryRouting, error)
	ReplaceForKey(ctx context.Context, key string, routings []domain.InventoryRouting) error
}

// Service é a camada de lógica de negócio do estoque central.
type Service struct {
	store       inventoryrepo.Store
	routings    RoutingRepository
	centralShop string
	logger      logger.Logger
}

// NewService cria e retorna uma nova instância do serviço de roteamento.
func NewService(store inventoryrepo.Store, routings RoutingRepository, centralShop string, log logger.Logger) *Service {
	return &Service{store: store, routings: routings, centralShop: centralShop, logger: log}
}

// ListRoutings devolve os roteamentos declarados para uma variante central.
func (s *Service) ListRoutings(ctx context.Context, sku string, attrs map[string]string) ([]domain.InventoryRouting, error) {
	return s.routings.ListForKey(ctx, variantkey.Encode(sku, attrs))
}

// ReplaceRoutings substitui os roteamentos de uma variante central. Lista
// vazia remove todos; a variante precisa existir no estoque central.
func (s *Service) ReplaceRoutings(ctx context.Context, sku string, attrs map[string]string, routings []domain.InventoryRouting) error {
	key := variantkey.Encode(sku, attrs)

	if _, err := s.centralItem(ctx, key); err != nil {
		return err
	}
	if err := s.routings.ReplaceForKey(ctx, key, routings); err != nil {
		s.logger.Error("Falha ao substituir os roteamentos.", err)
		return err
	}
	s.logger.Info("Roteamentos substituídos.", map[string]interface{}{
		"variant_key": key, "routings": len(routings),
	})
	return nil
}

// Allocations calcula as alocações por loja de uma variante central, na ordem
// de prioridade decrescente. Os modos fixed e percentage consomem o restante;
// o modo all não desconta, então várias lojas podem receber o total.
func (s *Service) Allocations(ctx context.Context, sku string, attrs map[string]string) ([]domain.ShopAllocation, error) {
	key := variantkey.Encode(sku, attrs)

	item, err := s.centralItem(ctx, key)
	if err != nil {
		return nil, err
	}

	routings, err := s.routings.ListForKey(ctx, key)
	if err != nil {
		return nil, err
	}

	sorted := make([]domain.InventoryRouting, len(routings))
	copy(sorted, routings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	allocations := make([]domain.ShopAllocation, 0, len(sorted))
	remaining := item.Quantity
	for _, routing := range sorted {
		allocated := computeAllocation(remaining, routing, item.Quantity)
		if allocated <= 0 {
			continue
		}
		allocations = append(allocations, domain.ShopAllocation{
			ShopID:            routing.ShopID,
			SKU:               item.SKU,
			VariantKey:        key,
			VariantAttributes: item.VariantAttributes,
			ProductID:         item.ProductID,
			AllocatedQuantity: allocated,
		})
		if routing.Mode() != domain.AllocationAll {
			remaining -= allocated
			if remaining < 0 {
				remaining = 0
			}
		}
	}
	return allocations, nil
}

// SyncShop materializa no inventário da loja as alocações calculadas a partir
// do estoque central: cria ou atualiza itens roteados e remove itens cujo
// registro central desapareceu. Falhas por variante vão para Errors sem
// abortar o restante.
func (s *Service) SyncShop(ctx context.Context, shop string) (*domain.SyncResult, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}

	doc, err := s.routings.All(ctx)
	if err != nil {
		return nil, err
	}

	central, err := s.store.Read(ctx, s.centralShop)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.InventoryItem, len(central))
	for _, item := range central {
		byKey[item.VariantKey()] = item
	}

	result := &domain.SyncResult{ShopID: shop}

	for _, key := range sortedKeys(doc) {
		routing, ok := routingForShop(doc[key], shop)
		if !ok {
			continue
		}

		item, exists := byKey[key]
		if !exists {
			// Registro central sumiu: o item roteado sai do inventário da loja.
			s.removeOrphan(ctx, shop, key, result)
			continue
		}

		allocated := computeAllocation(item.Quantity, routing, item.Quantity)
		created := false
		_, err := s.store.Update(ctx, shop, item.SKU, item.VariantAttributes,
			func(current *domain.InventoryItem) *domain.InventoryItem {
				if current == nil {
					created = true
					return &domain.InventoryItem{
						SKU:               item.SKU,
						ProductID:         item.ProductID,
						VariantAttributes: item.VariantAttributes,
						Quantity:          allocated,
					}
				}
				next := *current
				next.Quantity = allocated
				return &next
			})
		if err != nil {
			result.Errors = append(result.Errors, domain.SyncError{
				SKU: item.SKU, VariantKey: key, Error: err.Error(),
			})
			continue
		}

		if created {
			result.Created++
		} else {
			result.Updated++
		}
		result.Synced++
	}

	s.logger.Info("Sincronização do estoque central concluída.", map[string]interface{}{
		"shop": shop, "synced": result.Synced, "created": result.Created,
		"updated": result.Updated, "deleted": result.Deleted, "errors": len(result.Errors),
	})
	return result, nil
}

// SyncAllShops sincroniza toda loja que aparece em algum roteamento, em ordem
// determinística de nome.
func (s *Service) SyncAllShops(ctx context.Context) ([]domain.SyncResult, error) {
	doc, err := s.routings.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	shops := make([]string, 0)
	for _, routings := range doc {
		for _, routing := range routings {
			if !seen[routing.ShopID] {
				seen[routing.ShopID] = true
				shops = append(shops, routing.ShopID)
			}
		}
	}
	sort.Strings(shops)

	results := make([]domain.SyncResult, 0, len(shops))
	for _, shop := range shops {
		result, err := s.SyncShop(ctx, shop)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

func (s *Service) centralItem(ctx context.Context, key string) (*domain.InventoryItem, error) {
	items, err := s.store.Read(ctx, s.centralShop)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].VariantKey() == key {
			return &items[i], nil
		}
	}
	return nil, apperror.NewNotFoundError("Variante inexistente no estoque central: " + key)
}

func (s *Service) removeOrphan(ctx context.Context, shop, key string, result *domain.SyncResult) {
	sku, attrs, ok := variantkey.Decode(key)
	if !ok {
		result.Errors = append(result.Errors, domain.SyncError{VariantKey: key, Error: "chave de variante inválida"})
		return
	}

	existed := false
	_, err := s.store.Update(ctx, shop, sku, attrs,
		func(current *domain.InventoryItem) *domain.InventoryItem {
			existed = current != nil
			return nil
		})
	if err != nil {
		result.Errors = append(result.Errors, domain.SyncError{SKU: sku, VariantKey: key, Error: err.Error()})
		return
	}
	if existed {
		result.Deleted++
	}
}

// routingForShop devolve o roteamento de maior prioridade declarado para a
// loja (no máximo um por variante é aplicado na sincronização).
func routingForShop(routings []domain.InventoryRouting, shop string) (domain.InventoryRouting, bool) {
	best := domain.InventoryRouting{}
	found := false
	for _, routing := range routings {
		if routing.ShopID != shop {
			continue
		}
		if !found || routing.Priority > best.Priority {
			best = routing
			found = true
		}
	}
	return best, found
}

// computeAllocation calcula quanto um roteamento entrega dado o disponível e
// a quantidade total da variante central.
func computeAllocation(available int, routing domain.InventoryRouting, total int) int {
	switch routing.Mode() {
	case domain.AllocationFixed:
		fixed := 0
		if routing.AllocatedQuantity != nil {
			fixed = *routing.AllocatedQuantity
		}
		if fixed > available {
			return available
		}
		return fixed

	case domain.AllocationPercentage:
		percent := 0
		if routing.AllocatedPercent != nil {
			percent = *routing.AllocatedPercent
		}
		allocated := total * percent / 100
		if allocated > available {
			return available
		}
		return allocated

	default: // all
		return available
	}
}

func sortedKeys(doc map[string][]domain.InventoryRouting) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

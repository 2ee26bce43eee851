// Package rentalservice implementa a seleção e reserva de inventário de
// aluguel: janelas de disponibilidade, limite de desgaste e ciclo de
// manutenção, com reserva atômica via o primitivo Update do Inventory Store.
package rentalservice

import (
	"context"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/inventoryrepo"
)

// AvailabilityProvider define o contrato de consulta das janelas de
// disponibilidade declaradas por SKU. Lista vazia significa "sempre
// disponível".
type AvailabilityProvider interface {
	Windows(ctx context.Context, shop, sku string) ([]domain.AvailabilityWindow, error)
}

// Service implementa o algoritmo de alocação de aluguel.
type Service struct {
	store        inventoryrepo.Store
	availability AvailabilityProvider
	logger       logger.Logger
}

// NewService cria e retorna uma nova instância do serviço de aluguel.
func NewService(store inventoryrepo.Store, availability AvailabilityProvider, log logger.Logger) *Service {
	return &Service{store: store, availability: availability, logger: log}
}

// Reserve seleciona e reserva o primeiro candidato elegível para o período
// [from, to]. A seleção é first-fit na ordem dada: o desempate entre
// candidatos elegíveis é puramente a ordem do slice, que o chamador controla
// (e.g., pré-ordenando por menor desgaste).
//
// Retorna nil (sem erro e sem mutação) quando as datas caem fora de toda
// janela declarada, quando nenhum candidato qualifica, ou quando o registro
// sumiu entre a seleção e a reserva.
func (s *Service) Reserve(ctx context.Context, shop, sku string, candidates []domain.InventoryItem, from, to time.Time) (*domain.InventoryItem, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}
	if sku == "" {
		return nil, apperror.NewValidationError("O campo 'sku' é obrigatório.")
	}
	if to.Before(from) {
		return nil, apperror.NewValidationError("O fim do período não pode anteceder o início.")
	}

	// 1. Janelas de disponibilidade: ausência de janelas = sempre disponível;
	// caso contrário o período inteiro precisa caber em pelo menos uma.
	windows, err := s.availability.Windows(ctx, shop, sku)
	if err != nil {
		return nil, err
	}
	if len(windows) > 0 && !anyWindowContains(windows, from, to) {
		s.logger.Debug("Período fora de toda janela de disponibilidade.", map[string]interface{}{
			"shop": shop, "sku": sku, "from": from, "to": to,
		})
		return nil, nil
	}

	// 2. Varredura first-fit dos candidatos na ordem dada.
	selected := -1
	for i, item := range candidates {
		if eligible(item) {
			selected = i
			break
		}
	}
	if selected < 0 {
		return nil, nil
	}

	// 3. Reserva atômica via Update: quantidade -1, desgaste +1. A
	// elegibilidade é reavaliada dentro da mutação, já sob serialização; se o
	// registro sumiu ou deixou de qualificar, a reserva vira no-op.
	chosen := candidates[selected]
	reserved := false
	result, err := s.store.Update(ctx, shop, chosen.SKU, chosen.VariantAttributes,
		func(current *domain.InventoryItem) *domain.InventoryItem {
			if current == nil {
				return nil // registro sumiu entre seleção e reserva
			}
			if !eligible(*current) {
				return current // sem mutação efetiva
			}
			next := *current
			next.Quantity--
			wear := next.Wear() + 1
			next.WearCount = &wear
			reserved = true
			return &next
		})
	if err != nil {
		return nil, err
	}
	if result == nil || !reserved {
		return nil, nil
	}

	s.logger.Info("Item de aluguel reservado.", map[string]interface{}{
		"shop": shop, "variant_key": result.VariantKey(),
		"quantity": result.Quantity, "wear_count": result.Wear(),
	})
	return result, nil
}

func anyWindowContains(windows []domain.AvailabilityWindow, from, to time.Time) bool {
	for _, w := range windows {
		if w.Contains(from, to) {
			return true
		}
	}
	return false
}

// eligible aplica as três regras de qualificação de um candidato:
// desgaste abaixo do limite, não estar exatamente na vez da manutenção e
// quantidade positiva. Limite/ciclo ausentes são infinitos: nunca
// desqualificam, qualquer que seja o desgaste.
func eligible(item domain.InventoryItem) bool {
	wear := item.Wear()

	if item.WearAndTearLimit != nil && wear >= *item.WearAndTearLimit {
		return false
	}
	if item.MaintenanceCycle != nil && *item.MaintenanceCycle > 0 && wear > 0 && wear%*item.MaintenanceCycle == 0 {
		return false
	}
	return item.Quantity > 0
}

// Package inventoryrepo implementa o Inventory Store: o contrato agnóstico de
// backend sobre a coleção de itens por loja, com duas implementações
// (sistema de arquivos e PostgreSQL) selecionadas na construção por
// configuração explícita.
package inventoryrepo

import (
	"context"

	"stockledger/internal/domain"
)

// MutateFunc é o callback puro passado a Update. Recebe o item atual (nil
// quando ausente) e devolve o próximo estado (nil remove o item). Inserção,
// substituição e remoção são todas expressas por esse contrato.
type MutateFunc func(current *domain.InventoryItem) *domain.InventoryItem

// Store é o contrato do Inventory Store.
//
// Read devolve a coleção inteira da loja; a ausência de armazenamento por trás
// (arquivo inexistente, zero linhas) é uma coleção vazia, não um erro.
//
// Write substitui a coleção da loja de forma atômica: a validação rejeita o
// lote inteiro antes de qualquer persistência, e o gatilho de estoque baixo é
// invocado após a escrita, fora da seção crítica.
//
// Update aplica uma leitura-modificação-escrita serializada no item
// identificado pela chave de variante. N chamadas concorrentes no mesmo item,
// cada uma incrementando a quantidade, produzem quantidade inicial + N — sem
// updates perdidos.
type Store interface {
	Read(ctx context.Context, shop string) ([]domain.InventoryItem, error)
	Write(ctx context.Context, shop string, items []domain.InventoryItem) error
	Update(ctx context.Context, shop, sku string, attrs map[string]string, mutate MutateFunc) (*domain.InventoryItem, error)
}

// Package lowstock define a fronteira do gatilho de estoque baixo. O núcleo
// apenas detecta itens no limiar e invoca um Notifier injetado; a entrega em
// si (e-mail, webhook, janelas de supressão) é um colaborador externo.
package lowstock

import (
	"context"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
)

// Notifier é o contrato invocado após uma escrita bem-sucedida quando algum
// item cruzou seu limiar. Contrato com o núcleo: no máximo uma invocação por
// escrita, e falha do notificador jamais desfaz ou falha a escrita.
type Notifier interface {
	NotifyLowStock(ctx context.Context, shop string, items []domain.InventoryItem) error
}

// Scan retorna os itens cuja quantidade está no limiar efetivo ou abaixo dele.
// O limiar efetivo é o lowStockThreshold do item quando definido, senão o
// padrão da loja; um padrão <= 0 desativa o gatilho para itens sem limiar
// próprio.
func Scan(items []domain.InventoryItem, defaultThreshold int) []domain.InventoryItem {
	var low []domain.InventoryItem
	for _, item := range items {
		threshold := defaultThreshold
		if item.LowStockThreshold != nil {
			threshold = *item.LowStockThreshold
		} else if defaultThreshold <= 0 {
			continue
		}
		if item.Quantity <= threshold {
			low = append(low, item)
		}
	}
	return low
}

// LogNotifier é a implementação padrão: apenas registra o alerta no log
// estruturado. Serve de colaborador em desenvolvimento e como exemplo de
// implementação do contrato.
type LogNotifier struct {
	Logger logger.Logger
}

// NewLogNotifier cria o notificador de log.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{Logger: log}
}

// NotifyLowStock registra os itens abaixo do limiar.
func (n *LogNotifier) NotifyLowStock(_ context.Context, shop string, items []domain.InventoryItem) error {
	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, item.VariantKey())
	}
	n.Logger.Warn("Itens com estoque baixo detectados.", map[string]interface{}{
		"shop":  shop,
		"items": skus,
	})
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"

	apperror "stockledger/internal/errors"
)

// LedgerEventKind distingue os dois tipos de evento do razão de estoque.
type LedgerEventKind string

const (
	KindAdjustment LedgerEventKind = "stock-adjustment"
	KindInflow     LedgerEventKind = "stock-inflow"
)

// AdjustmentReason é o motivo de negócio de um ajuste manual de estoque.
type AdjustmentReason string

const (
	ReasonRecount    AdjustmentReason = "recount"
	ReasonDamage     AdjustmentReason = "damage"
	ReasonLoss       AdjustmentReason = "loss"
	ReasonReturn     AdjustmentReason = "return"
	ReasonCorrection AdjustmentReason = "correction"
)

var validReasons = map[AdjustmentReason]struct{}{
	ReasonRecount:    {},
	ReasonDamage:     {},
	ReasonLoss:       {},
	ReasonReturn:     {},
	ReasonCorrection: {},
}

// Actor identifica quem disparou uma operação do razão (opcional).
type Actor struct {
	CustomerID string `json:"customerId,omitempty"`
	Role       string `json:"role,omitempty"`
}

// AdjustmentLine é uma linha de um lote de ajuste. Delta pode ser negativo;
// o resultado é truncado no piso zero na aplicação.
type AdjustmentLine struct {
	SKU               string            `json:"sku"`
	ProductID         string            `json:"productId"`
	Delta             int               `json:"delta"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	Reason            AdjustmentReason  `json:"reason"`
}

// InflowLine é uma linha de um lote de recebimento. Delta é sempre positivo.
type InflowLine struct {
	SKU               string            `json:"sku"`
	ProductID         string            `json:"productId"`
	Delta             int               `json:"delta"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
}

// StockAdjustmentRequest é o payload de um lote de ajustes de estoque.
type StockAdjustmentRequest struct {
	Shop           string           `json:"shop"`
	IdempotencyKey string           `json:"idempotencyKey"`
	Actor          *Actor           `json:"actor,omitempty"`
	Note           string           `json:"note,omitempty"`
	DryRun         bool             `json:"dryRun,omitempty"`
	Items          []AdjustmentLine `json:"items"`
}

// StockInflowRequest é o payload de um lote de recebimentos de estoque.
type StockInflowRequest struct {
	Shop           string       `json:"shop"`
	IdempotencyKey string       `json:"idempotencyKey"`
	Actor          *Actor       `json:"actor,omitempty"`
	Note           string       `json:"note,omitempty"`
	DryRun         bool         `json:"dryRun,omitempty"`
	Items          []InflowLine `json:"items"`
}

// LineResult registra o antes/depois de uma linha aplicada.
type LineResult struct {
	SKU               string            `json:"sku"`
	ProductID         string            `json:"productId"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	Delta             int               `json:"delta"`
	PreviousQuantity  int               `json:"previousQuantity"`
	NextQuantity      int               `json:"nextQuantity"`
	Reason            AdjustmentReason  `json:"reason,omitempty"`
}

// LedgerReport resume o efeito de um lote aceito.
type LedgerReport struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Items   []LineResult `json:"items"`
}

// LedgerEvent é o registro imutável de um lote aceito. Criado uma única vez,
// nunca atualizado ou removido; a repetição da mesma IdempotencyKey devolve o
// evento original sem tocar o inventário de novo.
type LedgerEvent struct {
	ID             string          `json:"id"`
	Kind           LedgerEventKind `json:"kind"`
	Shop           string          `json:"shop"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Timestamp      time.Time       `json:"timestamp"`
	Actor          *Actor          `json:"actor,omitempty"`
	Note           string          `json:"note,omitempty"`
	Items          []LineResult    `json:"items"`
	Report         LedgerReport    `json:"report"`
}

// LedgerResult é o que o chamador recebe: o relatório, o id do evento e as
// flags que distinguem "accepted-new", "accepted-duplicate" e "dry-run".
type LedgerResult struct {
	EventID   string       `json:"eventId,omitempty"`
	Report    LedgerReport `json:"report"`
	Duplicate bool         `json:"duplicate"`
	DryRun    bool         `json:"dryRun,omitempty"`
}

// Validate verifica um lote de ajustes antes de qualquer acesso a armazenamento.
func (r StockAdjustmentRequest) Validate() error {
	if err := validateBatchHeader(r.Shop, r.IdempotencyKey, len(r.Items)); err != nil {
		return err
	}
	for idx, line := range r.Items {
		if err := validateLine(idx, line.SKU, line.ProductID, line.VariantAttributes); err != nil {
			return err
		}
		if _, ok := validReasons[line.Reason]; !ok {
			return apperror.NewValidationError(fmt.Sprintf("Linha %d: motivo de ajuste inválido: %q.", idx, line.Reason))
		}
	}
	return nil
}

// Validate verifica um lote de recebimentos. Recebimentos são sempre positivos.
func (r StockInflowRequest) Validate() error {
	if err := validateBatchHeader(r.Shop, r.IdempotencyKey, len(r.Items)); err != nil {
		return err
	}
	for idx, line := range r.Items {
		if err := validateLine(idx, line.SKU, line.ProductID, line.VariantAttributes); err != nil {
			return err
		}
		if line.Delta <= 0 {
			return apperror.NewValidationError(fmt.Sprintf("Linha %d: o delta de um recebimento deve ser positivo.", idx))
		}
	}
	return nil
}

func validateBatchHeader(shop, idempotencyKey string, lines int) error {
	if err := ValidateShopName(shop); err != nil {
		return err
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return apperror.NewValidationError("O campo 'idempotencyKey' é obrigatório.")
	}
	if lines == 0 {
		return apperror.NewValidationError("O lote não contém nenhuma linha.")
	}
	return nil
}

func validateLine(idx int, sku, productID string, attrs map[string]string) error {
	if strings.TrimSpace(sku) == "" {
		return apperror.NewValidationError(fmt.Sprintf("Linha %d: o campo 'sku' é obrigatório.", idx))
	}
	if strings.TrimSpace(productID) == "" {
		return apperror.NewValidationError(fmt.Sprintf("Linha %d: o campo 'productId' é obrigatório.", idx))
	}
	return ValidateVariantAttributes(attrs)
}

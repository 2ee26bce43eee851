package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// InventoryService define o contrato que o Handler espera da camada de Serviço.
type InventoryService interface {
	ListInventory(ctx context.Context, shop string) ([]domain.InventoryItem, error)
	ReplaceInventory(ctx context.Context, shop string, items []domain.InventoryItem) error
	SetQuantity(ctx context.Context, shop, sku string, attrs map[string]string, productID string, quantity int) (*domain.InventoryItem, error)
}

// Handler agrupa todos os métodos de Handler de inventário.
type Handler struct {
	Service InventoryService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc InventoryService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// InventoryHandler lida com GET e PUT em /v1/inventory.
// O dispatch por método fica aqui porque o ServeMux padrão não diferencia verbos.
func (h *Handler) InventoryHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listInventory(w, r)
	case http.MethodPut:
		h.replaceInventory(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// listInventory lida com a requisição GET /v1/inventory?shop={shop}.
// @Summary Lista o inventário de uma loja
// @Description Retorna todos os itens de inventário (SKU + variante) da loja informada.
// @Tags inventory
// @Produce json
// @Param shop query string true "Identificador da loja"
// @Success 200 {array} domain.InventoryItem "Coleção de itens"
// @Failure 400 {object} domain.ErrorResponse "Loja inválida"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /inventory [get]
func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shop := r.URL.Query().Get("shop")

	items, err := h.Service.ListInventory(ctx, shop)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	// Coleção vazia ainda é uma resposta válida (200 com lista vazia).
	if items == nil {
		items = []domain.InventoryItem{}
	}
	h.handleServiceResponse(w, r, items, nil, http.StatusOK)
}

// replaceInventory lida com a requisição PUT /v1/inventory?shop={shop}.
// @Summary Substitui o inventário de uma loja
// @Description Substitui a coleção completa de itens da loja de forma atômica.
// @Tags inventory
// @Accept json
// @Produce json
// @Param shop query string true "Identificador da loja"
// @Param items body []domain.InventoryItem true "Coleção completa de itens"
// @Success 204 "Inventário substituído"
// @Failure 400 {object} domain.ErrorResponse "Payload ou loja inválidos"
// @Failure 503 {object} domain.ErrorResponse "Falha ao adquirir o lock do inventário"
// @Security ApiKeyAuth
// @Router /inventory [put]
func (h *Handler) replaceInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shop := r.URL.Query().Get("shop")

	var items []domain.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	if err := h.Service.ReplaceInventory(ctx, shop, items); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, nil, nil, http.StatusNoContent)
}

// SetQuantityHandler lida com a requisição POST /v1/inventory/quantity.
// @Summary Define a quantidade de um item
// @Description Grava a quantidade absoluta de um item; quantidade negativa remove o item.
// @Tags inventory
// @Accept json
// @Produce json
// @Param request body inventory.setQuantityRequest true "Item e quantidade desejada"
// @Success 200 {object} domain.InventoryItem "Item atualizado"
// @Success 204 "Item removido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 503 {object} domain.ErrorResponse "Falha ao adquirir o lock do inventário"
// @Security ApiKeyAuth
// @Router /inventory/quantity [post]
func (h *Handler) SetQuantityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	item, err := h.Service.SetQuantity(ctx, req.Shop, req.SKU, req.VariantAttributes, req.ProductID, req.Quantity)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	if item == nil {
		// Quantidade negativa: o item foi removido da coleção.
		h.handleServiceResponse(w, r, nil, nil, http.StatusNoContent)
		return
	}
	h.handleServiceResponse(w, r, item, nil, http.StatusOK)
}

// setQuantityRequest é o payload de POST /v1/inventory/quantity.
type setQuantityRequest struct {
	Shop              string            `json:"shop"`
	SKU               string            `json:"sku"`
	VariantAttributes map[string]string `json:"variantAttributes,omitempty"`
	ProductID         string            `json:"productId,omitempty"`
	Quantity          int               `json:"quantity"`
}

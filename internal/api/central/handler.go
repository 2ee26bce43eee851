package central

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/variantkey"
)

// RoutingService define o contrato que o Handler espera da camada de Serviço.
type RoutingService interface {
	ListRoutings(ctx context.Context, sku string, attrs map[string]string) ([]domain.InventoryRouting, error)
	ReplaceRoutings(ctx context.Context, sku string, attrs map[string]string, routings []domain.InventoryRouting) error
	Allocations(ctx context.Context, sku string, attrs map[string]string) ([]domain.ShopAllocation, error)
	SyncShop(ctx context.Context, shop string) (*domain.SyncResult, error)
	SyncAllShops(ctx context.Context) ([]domain.SyncResult, error)
}

// Handler agrupa todos os métodos de Handler do estoque central.
type Handler struct {
	Service RoutingService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc RoutingService, log logger.Logger) *Handler {
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

// variantFromQuery extrai a variante da query string: ou a chave codificada
// inteira em 'key', ou apenas o 'sku' (variante sem atributos).
func variantFromQuery(r *http.Request) (string, map[string]string, error) {
	if key := r.URL.Query().Get("key"); key != "" {
		sku, attrs, ok := variantkey.Decode(key)
		if !ok {
			return "", nil, apperror.NewValidationError("Parâmetro 'key' não é uma chave de variante válida.")
		}
		return sku, attrs, nil
	}
	sku := r.URL.Query().Get("sku")
	if sku == "" {
		return "", nil, apperror.NewValidationError("Informe o parâmetro 'key' ou 'sku'.")
	}
	return sku, nil, nil
}

// routingsRequest é o payload de substituição dos roteamentos de uma variante.
type routingsRequest struct {
	SKU               string                    `json:"sku"`
	VariantAttributes map[string]string         `json:"variantAttributes,omitempty"`
	Routings          []domain.InventoryRouting `json:"routings"`
}

// syncRequest é o payload de sincronização. Loja vazia sincroniza todas as
// lojas roteadas.
type syncRequest struct {
	Shop string `json:"shop"`
}

// RoutingsHandler lida com GET e PUT em /v1/central/routings.
func (h *Handler) RoutingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRoutings(w, r)
	case http.MethodPut:
		h.replaceRoutings(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// listRoutings lida com a requisição GET /v1/central/routings.
// @Summary Lista os roteamentos de uma variante central
// @Description Devolve os roteamentos declarados para a variante ('key' codificada ou 'sku').
// @Tags central
// @Produce json
// @Param key query string false "Chave de variante codificada"
// @Param sku query string false "SKU (variante sem atributos)"
// @Success 200 {array} domain.InventoryRouting "Roteamentos declarados"
// @Failure 400 {object} domain.ErrorResponse "Parâmetros inválidos"
// @Router /central/routings [get]
func (h *Handler) listRoutings(w http.ResponseWriter, r *http.Request) {
	sku, attrs, err := variantFromQuery(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	routings, err := h.Service.ListRoutings(r.Context(), sku, attrs)
	if routings == nil && err == nil {
		routings = []domain.InventoryRouting{}
	}
	h.handleServiceResponse(w, r, routings, err, http.StatusOK)
}

// replaceRoutings lida com a requisição PUT /v1/central/routings.
// @Summary Substitui os roteamentos de uma variante central
// @Description Declara quem recebe a variante e como (all/fixed/percentage). Lista vazia remove todos.
// @Tags central
// @Accept json
// @Produce json
// @Param routings body routingsRequest true "Variante e roteamentos"
// @Success 204 "Roteamentos substituídos"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Variante inexistente no estoque central"
// @Router /central/routings [put]
func (h *Handler) replaceRoutings(w http.ResponseWriter, r *http.Request) {
	var req routingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusNoContent)
		return
	}

	err := h.Service.ReplaceRoutings(r.Context(), req.SKU, req.VariantAttributes, req.Routings)
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}

// AllocationsHandler lida com a requisição GET /v1/central/allocations.
// @Summary Calcula as alocações por loja de uma variante central
// @Description Aplica os roteamentos em ordem de prioridade e devolve quanto cada loja recebe.
// @Tags central
// @Produce json
// @Param key query string false "Chave de variante codificada"
// @Param sku query string false "SKU (variante sem atributos)"
// @Success 200 {array} domain.ShopAllocation "Alocações calculadas"
// @Failure 404 {object} domain.ErrorResponse "Variante inexistente no estoque central"
// @Router /central/allocations [get]
func (h *Handler) AllocationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	sku, attrs, err := variantFromQuery(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	allocations, err := h.Service.Allocations(r.Context(), sku, attrs)
	if allocations == nil && err == nil {
		allocations = []domain.ShopAllocation{}
	}
	h.handleServiceResponse(w, r, allocations, err, http.StatusOK)
}

// SyncHandler lida com a requisição POST /v1/central/sync.
// @Summary Sincroniza o estoque central para as lojas
// @Description Materializa as alocações no inventário da loja informada (ou de todas, quando 'shop' vem vazio).
// @Tags central
// @Accept json
// @Produce json
// @Param sync body syncRequest true "Loja alvo (vazia = todas)"
// @Success 200 {object} domain.SyncResult "Resumo da sincronização"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Router /central/sync [post]
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	if req.Shop == "" {
		results, err := h.Service.SyncAllShops(r.Context())
		if results == nil && err == nil {
			results = []domain.SyncResult{}
		}
		h.handleServiceResponse(w, r, results, err, http.StatusOK)
		return
	}

	result, err := h.Service.SyncShop(r.Context(), req.Shop)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

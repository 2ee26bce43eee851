package rental

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// RentalService define o contrato que o Handler espera da camada de Serviço.
type RentalService interface {
	Reserve(ctx context.Context, shop, sku string, candidates []domain.InventoryItem, from, to time.Time) (*domain.InventoryItem, error)
}

// InventoryLister fornece os candidatos à reserva; o Handler é quem decide a
// política de ordenação antes do first-fit do serviço.
type InventoryLister interface {
	ListInventory(ctx context.Context, shop string) ([]domain.InventoryItem, error)
}

// Handler agrupa todos os métodos de Handler de aluguel.
type Handler struct {
	Service   RentalService
	Inventory InventoryLister
	Logger    logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os serviços e o Logger.
func NewHandler(svc RentalService, inv InventoryLister, log logger.Logger) *Handler {
	return &Handler{
		Service:   svc,
		Inventory: inv,
		Logger:    log,
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

// ReserveHandler lida com a requisição POST /v1/rentals/reserve.
// @Summary Reserva um item de aluguel
// @Description Seleciona e reserva o candidato elegível de menor desgaste do SKU para o período informado.
// @Tags rentals
// @Accept json
// @Produce json
// @Param request body domain.ReservationRequest true "Loja, SKU e período desejado"
// @Success 200 {object} domain.InventoryItem "Item reservado (quantidade e desgaste já atualizados)"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Nenhum item disponível para o período"
// @Failure 503 {object} domain.ErrorResponse "Falha ao adquirir o lock do inventário"
// @Security ApiKeyAuth
// @Router /rentals/reserve [post]
func (h *Handler) ReserveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	// 1. Montar os candidatos: todas as variantes do SKU, ordenadas por menor
	// desgaste (política da API; o serviço respeita a ordem recebida).
	all, err := h.Inventory.ListInventory(ctx, req.Shop)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	candidates := make([]domain.InventoryItem, 0, len(all))
	for _, item := range all {
		if item.SKU == req.SKU {
			candidates = append(candidates, item)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Wear() < candidates[j].Wear()
	})

	// 2. Delegar a seleção e a reserva atômica ao serviço.
	item, err := h.Service.Reserve(ctx, req.Shop, req.SKU, candidates, req.From, req.To)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	// 3. nil sem erro = nada reservável: datas fora das janelas ou nenhum
	// candidato elegível. A API traduz para 409.
	if item == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewConflictError("Nenhum item disponível para o período solicitado."), http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, item, nil, http.StatusOK)
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

// LedgerService define o contrato que o Handler espera da camada de Serviço.
type LedgerService interface {
	ApplyStockAdjustment(ctx context.Context, req domain.StockAdjustmentRequest) (*domain.LedgerResult, error)
	ReceiveStockInflow(ctx context.Context, req domain.StockInflowRequest) (*domain.LedgerResult, error)
	ListEvents(ctx context.Context, shop string, kind domain.LedgerEventKind, limit int) ([]domain.LedgerEvent, error)
}

// Handler agrupa todos os métodos de Handler do razão de estoque.
type Handler struct {
	Service LedgerService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc LedgerService, log logger.Logger) *Handler {
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

// AdjustmentsHandler lida com POST e GET em /v1/stock/adjustments.
func (h *Handler) AdjustmentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.applyAdjustment(w, r)
	case http.MethodGet:
		h.listEvents(w, r, domain.KindAdjustment)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// InflowsHandler lida com POST e GET em /v1/stock/inflows.
func (h *Handler) InflowsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.applyInflow(w, r)
	case http.MethodGet:
		h.listEvents(w, r, domain.KindInflow)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// applyAdjustment lida com a requisição POST /v1/stock/adjustments.
// @Summary Aplica um lote de ajustes de estoque
// @Description Aplica um lote atômico e idempotente de ajustes relativos (delta pode ser negativo; o saldo nunca fica abaixo de zero).
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body domain.StockAdjustmentRequest true "Lote de ajustes"
// @Success 200 {object} domain.LedgerResult "Resultado do lote (inclui replays idempotentes)"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Divergência de produto para uma variante existente"
// @Failure 503 {object} domain.ErrorResponse "Falha ao adquirir o lock do razão"
// @Security ApiKeyAuth
// @Router /stock/adjustments [post]
func (h *Handler) applyAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.StockAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	// O ator do evento vem das claims do JWT quando o cliente não o informa.
	if req.Actor == nil {
		req.Actor = middleware.ActorFromContext(ctx)
	}

	result, err := h.Service.ApplyStockAdjustment(ctx, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, result, nil, http.StatusOK)
}

// applyInflow lida com a requisição POST /v1/stock/inflows.
// @Summary Registra uma entrada de estoque
// @Description Aplica um lote atômico e idempotente de entradas (delta estritamente positivo).
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body domain.StockInflowRequest true "Lote de entradas"
// @Success 200 {object} domain.LedgerResult "Resultado do lote (inclui replays idempotentes)"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Divergência de produto para uma variante existente"
// @Failure 503 {object} domain.ErrorResponse "Falha ao adquirir o lock do razão"
// @Security ApiKeyAuth
// @Router /stock/inflows [post]
func (h *Handler) applyInflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.StockInflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	if req.Actor == nil {
		req.Actor = middleware.ActorFromContext(ctx)
	}

	result, err := h.Service.ReceiveStockInflow(ctx, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, result, nil, http.StatusOK)
}

// listEvents lida com GET /v1/stock/adjustments e GET /v1/stock/inflows.
// @Summary Lista eventos do razão
// @Description Retorna os eventos do razão da loja, do mais recente para o mais antigo.
// @Tags ledger
// @Produce json
// @Param shop query string true "Identificador da loja"
// @Param limit query int false "Máximo de eventos (padrão 50)"
// @Success 200 {array} domain.LedgerEvent "Eventos encontrados"
// @Failure 400 {object} domain.ErrorResponse "Loja inválida"
// @Router /stock/adjustments [get]
func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request, kind domain.LedgerEventKind) {
	ctx := r.Context()
	shop := r.URL.Query().Get("shop")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Parâmetro 'limit' inválido."), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := h.Service.ListEvents(ctx, shop, kind, limit)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	if events == nil {
		events = []domain.LedgerEvent{}
	}
	h.handleServiceResponse(w, r, events, nil, http.StatusOK)
}

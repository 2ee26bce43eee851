package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"stockledger/internal/api/central"
	"stockledger/internal/api/inventory"
	"stockledger/internal/api/ledger"
	"stockledger/internal/api/rental"
	"stockledger/internal/api/user"
	"stockledger/internal/domain"
	"stockledger/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
//
// userHandler e authMW podem ser nil: no backend de filesystem não há banco de
// usuários, então as rotas de registro/login não são montadas e as rotas de
// escrita ficam abertas. Com Postgres, ambas vêm preenchidas.
func NewRouter(
	inventoryHandler *inventory.Handler,
	ledgerHandler *ledger.Handler,
	rentalHandler *rental.Handler,
	centralHandler *central.Handler,
	userHandler *user.Handler,
	authMW func(next http.HandlerFunc) http.HandlerFunc,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	// protectWrites aplica autenticação + permissão apenas aos métodos de
	// escrita; leituras (GET/HEAD) passam direto. Necessário porque cada rota
	// concentra mais de um verbo no mesmo HandlerFunc.
	protectWrites := func(next http.HandlerFunc) http.HandlerFunc {
		if authMW == nil {
			return next
		}
		protected := authMW(middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator)(next))
		return func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead:
				next(w, r)
			default:
				protected(w, r)
			}
		}
	}

	// --- 1. Rotas de Health Check ---
	mux.HandleFunc("/ping", PingHandler)

	// --- 2. Rotas do Módulo de Inventário (v1) ---

	// GET  /v1/inventory (listar coleção da loja)
	// PUT  /v1/inventory (substituir coleção da loja)
	mux.HandleFunc("/v1/inventory", protectWrites(inventoryHandler.InventoryHandler))

	// POST /v1/inventory/quantity (gravar quantidade absoluta de um item)
	mux.HandleFunc("/v1/inventory/quantity", protectWrites(inventoryHandler.SetQuantityHandler))

	// --- 3. Rotas do Razão de Estoque (v1) ---

	// POST /v1/stock/adjustments (aplicar lote de ajustes)
	// GET  /v1/stock/adjustments (listar eventos de ajuste)
	mux.HandleFunc("/v1/stock/adjustments", protectWrites(ledgerHandler.AdjustmentsHandler))

	// POST /v1/stock/inflows (registrar entradas)
	// GET  /v1/stock/inflows (listar eventos de entrada)
	mux.HandleFunc("/v1/stock/inflows", protectWrites(ledgerHandler.InflowsHandler))

	// --- 4. Rotas de Aluguel (v1) ---

	// POST /v1/rentals/reserve (reservar item para um período)
	// Clientes autenticados também podem reservar, então a permissão inclui RoleCustomer.
	reserve := rentalHandler.ReserveHandler
	if authMW != nil {
		reserve = authMW(middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator, domain.RoleCustomer)(reserve))
	}
	mux.HandleFunc("/v1/rentals/reserve", reserve)

	// --- 5. Rotas do Estoque Central (v1) ---

	// GET /v1/central/routings (listar roteamentos de uma variante)
	// PUT /v1/central/routings (substituir roteamentos de uma variante)
	mux.HandleFunc("/v1/central/routings", protectWrites(centralHandler.RoutingsHandler))

	// GET /v1/central/allocations (calcular alocações por loja)
	mux.HandleFunc("/v1/central/allocations", protectWrites(centralHandler.AllocationsHandler))

	// POST /v1/central/sync (materializar alocações no inventário das lojas)
	mux.HandleFunc("/v1/central/sync", protectWrites(centralHandler.SyncHandler))

	// --- 6. Rotas de Usuário (v1) ---
	if userHandler != nil {
		mux.HandleFunc("/v1/register", userHandler.RegisterUserHandler)
		mux.HandleFunc("/v1/login", userHandler.LoginUserHandler)
	}

	// --- 7. Documentação Swagger ---
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

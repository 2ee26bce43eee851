package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"stockledger/config"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/lowstock"
	"stockledger/internal/pkg/middleware"
	"stockledger/internal/pkg/token"

	// Camadas da API para Injeção de Dependências
	"stockledger/internal/api/central"
	"stockledger/internal/api/inventory"
	"stockledger/internal/api/ledger"
	"stockledger/internal/api/rental"
	"stockledger/internal/api/router"
	"stockledger/internal/api/user"
	"stockledger/internal/repository/inventoryrepo"
	"stockledger/internal/repository/ledgerrepo"
	"stockledger/internal/repository/routingrepo"
	"stockledger/internal/repository/schedulerepo"
	"stockledger/internal/repository/userrepo"
	"stockledger/internal/service/inventoryservice"
	"stockledger/internal/service/ledgerservice"
	"stockledger/internal/service/rentalservice"
	"stockledger/internal/service/routingservice"
	"stockledger/internal/service/userservice"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço StockLedger...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos, mas continuamos,
		// pois as variáveis podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"backend": cfg.Backend})

	// 2. Gatilho de estoque baixo (fire-and-forget, fora do lock)
	notifier := lowstock.NewLogNotifier(appLog)

	// 3. Montagem do backend de persistência
	// Ordem: Repository -> Service -> Handler (Clean Architecture)

	var (
		store       inventoryrepo.Store
		events      ledgerrepo.EventLog
		userHandler *user.Handler
		authMW      func(next http.HandlerFunc) http.HandlerFunc
		cacheClient cache.Client
	)

	switch cfg.Backend {
	case config.BackendPostgres:
		// A. Banco de Dados (PostgreSQL)
		db, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao banco de dados.", err)
		}
		defer db.Close()
		appLog.Info("Conexão PostgreSQL estabelecida.", nil)

		// B. Cache (Redis)
		redisAddr := cfg.RedisAddr
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}
		cacheClient = cache.NewRedisClient(redisAddr)
		appLog.Info("Conexão Redis estabelecida.", nil)

		store = inventoryrepo.NewPostgresStore(db, cacheClient, cfg.DBTimeout, cfg.CacheTimeout, cfg.DefaultLowStockThreshold, notifier, appLog)
		events = ledgerrepo.NewPostgresEventLog(db, cfg.DBTimeout, appLog)

		// C. Autenticação: tokens JWT + repositório de usuários
		tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
		userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, appLog)
		userSvc := userservice.NewService(userRepo, tokenSvc)
		userHandler = user.NewHandler(userSvc, appLog)
		authMW = middleware.NewAuthMiddleware(tokenSvc)
		appLog.Debug("Autenticação JWT habilitada.", nil)

	default: // config.BackendFilesystem
		store = inventoryrepo.NewFileStore(cfg.DataDir, cfg.LockTimeout, cfg.LockStale, cfg.DefaultLowStockThreshold, notifier, appLog)
		events = ledgerrepo.NewFileEventLog(cfg.DataDir, appLog)
		appLog.Info("Backend de filesystem inicializado.", map[string]interface{}{"data_dir": cfg.DataDir})

		// Cache opcional para o rate limiter.
		if cfg.RedisAddr != "" {
			cacheClient = cache.NewRedisClient(cfg.RedisAddr)
			appLog.Info("Conexão Redis estabelecida.", nil)
		}
	}

	// 4. Serviços (Camada de Lógica de Negócio)
	inventorySvc := inventoryservice.NewService(store, appLog)
	ledgerSvc := ledgerservice.NewService(store, events, cfg.DataDir, cfg.LockTimeout, cfg.LockStale, appLog)
	scheduleRepo := schedulerepo.NewFileScheduleRepository(cfg.DataDir, appLog)
	rentalSvc := rentalservice.NewService(store, scheduleRepo, appLog)
	routingRepo := routingrepo.NewFileRoutingRepository(cfg.DataDir, cfg.CentralShop, cfg.LockTimeout, cfg.LockStale, appLog)
	routingSvc := routingservice.NewService(store, routingRepo, cfg.CentralShop, appLog)

	// 5. Handlers (Camada de Apresentação)
	inventoryHandler := inventory.NewHandler(inventorySvc, appLog)
	ledgerHandler := ledger.NewHandler(ledgerSvc, appLog)
	rentalHandler := rental.NewHandler(rentalSvc, inventorySvc, appLog)
	centralHandler := central.NewHandler(routingSvc, appLog)

	// 6. Roteador e middlewares globais
	var handler http.Handler = router.NewRouter(inventoryHandler, ledgerHandler, rentalHandler, centralHandler, userHandler, authMW)
	if cacheClient != nil {
		handler = middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)(handler)
		appLog.Debug("Rate limiter habilitado.", map[string]interface{}{
			"max_requests": cfg.RateLimitMaxRequests, "period": cfg.RateLimitPeriod.String(),
		})
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 7. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor StockLedger ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}

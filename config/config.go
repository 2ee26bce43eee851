package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Backends de persistência suportados.
const (
	BackendFilesystem = "filesystem"
	BackendPostgres   = "postgres"
)

// Config armazena todas as configurações do aplicativo StockLedger.
// Todos os campos são definidos com base nos requisitos do projeto
// (persistência, locking, cache, segurança, robustez).
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Persistência
	// Backend escolhe entre "filesystem" (coleções JSON por loja) e
	// "postgres" (relacional com migrações goose).
	Backend string
	DataDir string

	// CentralShop é o nome da coleção que guarda o estoque central
	// distribuído às lojas pelos roteamentos.
	CentralShop string

	// Locking (advisory lock em arquivo, só relevante no filesystem)
	LockTimeout time.Duration
	LockStale   time.Duration

	// Gatilho de estoque baixo (0 desativa o padrão global)
	DefaultLowStockThreshold int

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr    string
	CacheTimeout time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() *Config {
	cfg := &Config{
		// 1. Geral
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// 2. Persistência
		Backend:     getEnv("STORE_BACKEND", BackendFilesystem),
		DataDir:     getEnv("DATA_DIR", "./data"),
		CentralShop: getEnv("CENTRAL_SHOP", "central"),

		// 3. Locking
		LockTimeout: getDurationEnv("LOCK_TIMEOUT_MS", 5000) * time.Millisecond,
		LockStale:   getDurationEnv("LOCK_STALE_MS", 60000) * time.Millisecond,

		// 4. Gatilho de estoque baixo
		DefaultLowStockThreshold: getIntEnv("LOW_STOCK_THRESHOLD", 0),

		// 5. Banco de Dados (PostgreSQL) — obrigatório apenas no backend postgres.
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second, // 5s padrão

		// 6. Cache (Redis)
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		CacheTimeout: getDurationEnv("CACHE_TIMEOUT_SEC", 10) * time.Second, // 10s padrão

		// 7. Segurança (JWT) — obrigatório apenas quando há autenticação (postgres).
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		TokenExpiry:  getDurationEnv("JWT_EXPIRY_MIN", 60) * time.Minute, // 60 min padrão

		// 8. Rate Limiting
		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute, // 1 min padrão
	}

	// Validação cruzada: o backend relacional exige credenciais de DB e segredo JWT.
	if cfg.Backend == BackendPostgres {
		if cfg.DatabaseURL == "" {
			log.Fatalf("❌ Erro de Configuração: DATABASE_URL deve ser definida quando STORE_BACKEND=postgres.")
		}
		if cfg.JWTSecretKey == "" {
			log.Fatalf("❌ Erro de Configuração: JWT_SECRET_KEY deve ser definida quando STORE_BACKEND=postgres.")
		}
	} else if cfg.Backend != BackendFilesystem {
		log.Fatalf("❌ Erro de Configuração: STORE_BACKEND inválido ('%s'). Use 'filesystem' ou 'postgres'.", cfg.Backend)
	}

	return cfg
}

// Funções Helpers (Auxiliares)

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDurationEnv lê uma variável de ambiente numérica e retorna-a como time.Duration.
func getDurationEnv(key string, defaultValue int) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return time.Duration(defaultValue)
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return time.Duration(defaultValue)
	}
	return time.Duration(value)
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um número inteiro válido. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

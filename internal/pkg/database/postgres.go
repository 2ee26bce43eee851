package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	// Driver PostgreSQL registrado via side effect do import.
	_ "github.com/lib/pq"
)

// Parâmetros do pool de conexões. O backend relacional serve leituras de
// inventário e escritas do razão; 25 conexões cobrem o tráfego esperado sem
// esgotar o limite padrão do servidor.
const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 2 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewPostgresDB inicializa o pool de conexões com o PostgreSQL e valida a
// conexão com um ping antes de entregá-la ao resto da aplicação.
func NewPostgresDB(dataSourceName string) (*sql.DB, error) {
	// 1. Abrir a Conexão (sql.Open não conecta de fato, só valida a DSN)
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	// 2. Testar a Conexão imediatamente, com timeout curto. Sem isso, uma
	// DSN errada só apareceria na primeira query real.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	// 3. Configuração do Connection Pool
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	log.Println("Pool de conexões PostgreSQL configurado e pronto.")

	return db, nil
}

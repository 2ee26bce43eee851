package inventoryrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/lowstock"
	"stockledger/internal/pkg/variantkey"
)

// PostgresStore é o backend relacional do Inventory Store. Transações com
// SELECT ... FOR UPDATE dão o mesmo isolamento que o lock file dá ao backend
// de arquivos: nenhum update perdido sob chamadores concorrentes.
//
// As leituras passam por um cache read-through (Redis); toda mutação invalida
// a chave da loja.
type PostgresStore struct {
	DB               *sql.DB
	Cache            cache.Client
	DBTimeout        time.Duration
	CacheTTL         time.Duration
	defaultThreshold int
	notifier         lowstock.Notifier
	logger           logger.Logger
}

// NewPostgresStore cria o backend relacional, injetando a conexão, o cache e
// o notificador de estoque baixo.
func NewPostgresStore(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, defaultThreshold int, notifier lowstock.Notifier, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		DB:               db,
		Cache:            cacheClient,
		DBTimeout:        dbTimeout,
		CacheTTL:         cacheTTL,
		defaultThreshold: defaultThreshold,
		notifier:         notifier,
		logger:           log,
	}
}

func cacheKey(shop string) string { return "inventory:" + shop }

const selectColumns = `sku, product_id, variant_attributes, quantity,
       low_stock_threshold, wear_count, wear_and_tear_limit, maintenance_cycle`

// Read devolve todos os itens da loja. Zero linhas é coleção vazia.
func (s *PostgresStore) Read(ctx context.Context, shop string) ([]domain.InventoryItem, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}

	// 1. Tentativa de cache (read-through)
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, cacheKey(shop)); err == nil {
			var items []domain.InventoryItem
			if json.Unmarshal([]byte(raw), &items) == nil {
				return items, nil
			}
		}
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	rows, err := s.DB.QueryContext(ctxTimeout,
		`SELECT `+selectColumns+` FROM inventory_items WHERE shop_id = $1 ORDER BY variant_key`, shop)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar o inventário", err)
	}
	defer rows.Close()

	items := []domain.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Falha ao iterar o inventário", err)
	}

	// 2. Popula o cache em melhor esforço
	if s.Cache != nil {
		if raw, err := json.Marshal(items); err == nil {
			_ = s.Cache.Set(ctx, cacheKey(shop), string(raw), s.CacheTTL)
		}
	}

	return items, nil
}

// Write substitui a coleção da loja numa única transação (tudo-ou-nada).
func (s *PostgresStore) Write(ctx context.Context, shop string, items []domain.InventoryItem) error {
	if err := domain.ValidateShopName(shop); err != nil {
		return err
	}
	if err := domain.ValidateInventoryCollection(items); err != nil {
		return err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	tx, err := s.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM inventory_items WHERE shop_id = $1`, shop); err != nil {
		return apperror.NewDBError("Falha ao limpar o inventário anterior", err)
	}
	for _, item := range items {
		if err := insertItem(ctxTimeout, tx, shop, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.NewDBError("Falha ao commitar a escrita do inventário", err)
	}

	s.invalidate(ctx, shop)
	s.logger.Debug("Inventário gravado.", map[string]interface{}{"shop": shop, "items": len(items)})
	s.fireLowStockTrigger(shop, items)
	return nil
}

// Update aplica a mutação de um item sob SELECT ... FOR UPDATE. A linha fica
// bloqueada pela transação inteira, serializando chamadores concorrentes.
func (s *PostgresStore) Update(ctx context.Context, shop, sku string, attrs map[string]string, mutate MutateFunc) (*domain.InventoryItem, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}
	if err := domain.ValidateVariantAttributes(attrs); err != nil {
		return nil, err
	}

	key := variantkey.Encode(sku, attrs)

	ctxTimeout, cancel := context.WithTimeout(ctx, s.DBTimeout)
	defer cancel()

	tx, err := s.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctxTimeout,
		`SELECT `+selectColumns+` FROM inventory_items WHERE shop_id = $1 AND variant_key = $2 FOR UPDATE`,
		shop, key)

	var current *domain.InventoryItem
	item, err := scanItem(row)
	switch {
	case err == nil:
		current = &item
	case isNoRows(err):
		current = nil
	default:
		return nil, err
	}

	next := mutate(current)

	switch {
	case next == nil && current == nil:
		// Ausente continua ausente: nada a persistir.
		return nil, nil
	case next == nil:
		if _, err := tx.ExecContext(ctxTimeout,
			`DELETE FROM inventory_items WHERE shop_id = $1 AND variant_key = $2`, shop, key); err != nil {
			return nil, apperror.NewDBError("Falha ao remover o item", err)
		}
	default:
		next.SKU = sku
		next.VariantAttributes = attrs
		if err := next.Validate(); err != nil {
			return nil, err
		}
		if current == nil {
			if err := insertItem(ctxTimeout, tx, shop, *next); err != nil {
				return nil, err
			}
		} else if err := updateItem(ctxTimeout, tx, shop, key, *next); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.NewDBError("Falha ao commitar a mutação", err)
	}

	s.invalidate(ctx, shop)

	// O gatilho de estoque baixo avalia a coleção resultante inteira, como no
	// backend de arquivos.
	if snapshot, err := s.Read(ctx, shop); err == nil {
		s.fireLowStockTrigger(shop, snapshot)
	}
	return next, nil
}

func (s *PostgresStore) invalidate(ctx context.Context, shop string) {
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cacheKey(shop))
	}
}

func (s *PostgresStore) fireLowStockTrigger(shop string, items []domain.InventoryItem) {
	low := lowstock.Scan(items, s.defaultThreshold)
	if len(low) == 0 || s.notifier == nil {
		return
	}
	go func() {
		if err := s.notifier.NotifyLowStock(context.Background(), shop, low); err != nil {
			s.logger.Error("Falha ao notificar estoque baixo.", err)
		}
	}()
}

// --- Helpers de serialização linha <-> domínio ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	var attrsRaw []byte
	var lowStock, wearCount, wearLimit, cycle sql.NullInt64

	err := row.Scan(&item.SKU, &item.ProductID, &attrsRaw, &item.Quantity,
		&lowStock, &wearCount, &wearLimit, &cycle)
	if err != nil {
		if isNoRows(err) {
			return domain.InventoryItem{}, err
		}
		return domain.InventoryItem{}, apperror.NewDBError("Falha ao ler linha de inventário", err)
	}

	if len(attrsRaw) > 0 {
		if err := json.Unmarshal(attrsRaw, &item.VariantAttributes); err != nil {
			return domain.InventoryItem{}, apperror.NewDBError("Atributos de variante corrompidos", err)
		}
	}
	item.LowStockThreshold = nullableInt(lowStock)
	item.WearCount = nullableInt(wearCount)
	item.WearAndTearLimit = nullableInt(wearLimit)
	item.MaintenanceCycle = nullableInt(cycle)
	return item, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, shop string, item domain.InventoryItem) error {
	attrsRaw, err := json.Marshal(item.VariantAttributes)
	if err != nil {
		return apperror.NewDBError("Falha ao serializar atributos de variante", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO inventory_items
            (id, shop_id, sku, variant_key, product_id, variant_attributes, quantity,
             low_stock_threshold, wear_count, wear_and_tear_limit, maintenance_cycle,
             created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.NewString(), shop, item.SKU, item.VariantKey(), item.ProductID, attrsRaw, item.Quantity,
		sqlInt(item.LowStockThreshold), sqlInt(item.WearCount), sqlInt(item.WearAndTearLimit),
		sqlInt(item.MaintenanceCycle), now, now)
	if err != nil {
		return apperror.NewDBError("Falha ao inserir item de inventário", err)
	}
	return nil
}

func updateItem(ctx context.Context, tx *sql.Tx, shop, key string, item domain.InventoryItem) error {
	_, err := tx.ExecContext(ctx, `
        UPDATE inventory_items
        SET product_id = $1, quantity = $2, low_stock_threshold = $3, wear_count = $4,
            wear_and_tear_limit = $5, maintenance_cycle = $6, updated_at = $7
        WHERE shop_id = $8 AND variant_key = $9`,
		item.ProductID, item.Quantity, sqlInt(item.LowStockThreshold), sqlInt(item.WearCount),
		sqlInt(item.WearAndTearLimit), sqlInt(item.MaintenanceCycle), time.Now(), shop, key)
	if err != nil {
		return apperror.NewDBError("Falha ao atualizar item de inventário", err)
	}
	return nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func sqlInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}

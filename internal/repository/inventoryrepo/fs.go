package inventoryrepo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/lockfile"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/lowstock"
	"stockledger/internal/pkg/variantkey"
)

const (
	inventoryFile = "inventory.json"
	inventoryLock = "inventory.lock"
)

// FileStore é o backend de sistema de arquivos do Inventory Store.
// Cada loja tem um snapshot JSON (DATA_DIR/<loja>/inventory.json) substituído
// atomicamente a cada escrita, guardado por um lock file próprio
// (DATA_DIR/<loja>/inventory.lock).
type FileStore struct {
	baseDir          string
	lockTimeout      time.Duration
	lockStale        time.Duration
	defaultThreshold int
	notifier         lowstock.Notifier
	logger           logger.Logger
}

// NewFileStore cria o backend de arquivos, injetando o notificador de estoque
// baixo e o logger.
func NewFileStore(baseDir string, lockTimeout, lockStale time.Duration, defaultThreshold int, notifier lowstock.Notifier, log logger.Logger) *FileStore {
	return &FileStore{
		baseDir:          baseDir,
		lockTimeout:      lockTimeout,
		lockStale:        lockStale,
		defaultThreshold: defaultThreshold,
		notifier:         notifier,
		logger:           log,
	}
}

func (s *FileStore) inventoryPath(shop string) string {
	return filepath.Join(s.baseDir, shop, inventoryFile)
}

func (s *FileStore) lockPath(shop string) string {
	return filepath.Join(s.baseDir, shop, inventoryLock)
}

// Read devolve todos os itens da loja. Arquivo inexistente é coleção vazia.
func (s *FileStore) Read(_ context.Context, shop string) ([]domain.InventoryItem, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}
	return s.readCollection(shop)
}

func (s *FileStore) readCollection(shop string) ([]domain.InventoryItem, error) {
	raw, err := os.ReadFile(s.inventoryPath(shop))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.InventoryItem{}, nil
	}
	if err != nil {
		return nil, apperror.NewIOError("Falha ao ler o inventário", err)
	}

	var items []domain.InventoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperror.NewIOError("Inventário corrompido no disco", err)
	}
	return items, nil
}

// Write substitui a coleção da loja. Validação acontece antes do lock; a
// persistência usa arquivo temporário + rename atômico; o gatilho de estoque
// baixo dispara depois que o lock foi liberado.
func (s *FileStore) Write(ctx context.Context, shop string, items []domain.InventoryItem) error {
	if err := domain.ValidateShopName(shop); err != nil {
		return err
	}
	if err := domain.ValidateInventoryCollection(items); err != nil {
		return err
	}

	err := func() error {
		handle, err := lockfile.Acquire(s.lockPath(shop), s.lockTimeout, s.lockStale)
		if err != nil {
			return err
		}
		defer lockfile.Release(handle)
		return s.persist(shop, items)
	}()
	if err != nil {
		return err
	}

	s.logger.Debug("Inventário gravado.", map[string]interface{}{"shop": shop, "items": len(items)})
	s.fireLowStockTrigger(shop, items)
	return nil
}

// Update aplica a mutação de um único item reescrevendo a coleção inteira sob
// o lock — é esse padrão que dá atomicidade de leitura-modificação-escrita a
// chamadores concorrentes.
func (s *FileStore) Update(ctx context.Context, shop, sku string, attrs map[string]string, mutate MutateFunc) (*domain.InventoryItem, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}
	if err := domain.ValidateVariantAttributes(attrs); err != nil {
		return nil, err
	}

	key := variantkey.Encode(sku, attrs)

	var next *domain.InventoryItem
	var snapshot []domain.InventoryItem
	persisted := false

	err := func() error {
		handle, err := lockfile.Acquire(s.lockPath(shop), s.lockTimeout, s.lockStale)
		if err != nil {
			return err
		}
		defer lockfile.Release(handle)

		items, err := s.readCollection(shop)
		if err != nil {
			return err
		}

		idx := -1
		for i := range items {
			if items[i].VariantKey() == key {
				idx = i
				break
			}
		}

		var current *domain.InventoryItem
		if idx >= 0 {
			copied := items[idx]
			current = &copied
		}

		next = mutate(current)

		switch {
		case next == nil && idx < 0:
			// Item ausente continua ausente: nada a persistir.
			return nil
		case next == nil:
			items = append(items[:idx], items[idx+1:]...)
		case idx < 0:
			// Criação no primeiro Update que devolve valor para chave inédita.
			next.SKU = sku
			next.VariantAttributes = attrs
			items = append(items, *next)
		default:
			next.SKU = sku
			next.VariantAttributes = attrs
			if reflect.DeepEqual(items[idx], *next) {
				// Mutação sem efeito: não reescrever a coleção nem
				// rearmar o gatilho de estoque baixo.
				return nil
			}
			items[idx] = *next
		}

		if err := domain.ValidateInventoryCollection(items); err != nil {
			return err
		}
		if err := s.persist(shop, items); err != nil {
			return err
		}
		snapshot = items
		persisted = true
		return nil
	}()
	if err != nil {
		return nil, err
	}

	if persisted {
		s.fireLowStockTrigger(shop, snapshot)
	}
	return next, nil
}

// persist serializa a coleção num arquivo temporário e o renomeia sobre o
// canônico. O arquivo canônico nunca é observável em estado parcial.
func (s *FileStore) persist(shop string, items []domain.InventoryItem) error {
	dir := filepath.Dir(s.inventoryPath(shop))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.NewIOError("Falha ao criar o diretório da loja", err)
	}

	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return apperror.NewIOError("Falha ao serializar o inventário", err)
	}

	tmp, err := os.CreateTemp(dir, ".inventory-*.tmp")
	if err != nil {
		return apperror.NewIOError("Falha ao criar arquivo temporário", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao gravar o inventário", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao fechar o arquivo temporário", err)
	}
	if err := os.Rename(tmpName, s.inventoryPath(shop)); err != nil {
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao substituir o inventário", err)
	}
	return nil
}

// fireLowStockTrigger dispara o notificador em melhor esforço, no máximo uma
// vez por escrita. Falha do notificador nunca falha a escrita.
func (s *FileStore) fireLowStockTrigger(shop string, items []domain.InventoryItem) {
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

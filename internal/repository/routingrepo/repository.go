// Package routingrepo persiste os roteamentos do estoque central num
// documento JSON (DATA_DIR/<central>/routings.json) indexado pela chave de
// variante. Como o calendário de aluguel, o documento é configuração
// declarada por operadores; arquivo ausente significa "nenhum roteamento".
package routingrepo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/lockfile"
	"stockledger/internal/pkg/logger"
)

const (
	routingsFile = "routings.json"
	routingsLock = "routings.lock"
)

// FileRoutingRepository implementa routingservice.RoutingRepository sobre o
// sistema de arquivos, com escrita atômica (temporário + rename) sob lock
// file próprio.
type FileRoutingRepository struct {
	baseDir     string
	centralShop string
	lockTimeout time.Duration
	lockStale   time.Duration
	logger      logger.Logger
}

// NewFileRoutingRepository cria o repositório de roteamentos.
func NewFileRoutingRepository(baseDir, centralShop string, lockTimeout, lockStale time.Duration, log logger.Logger) *FileRoutingRepository {
	return &FileRoutingRepository{
		baseDir:     baseDir,
		centralShop: centralShop,
		lockTimeout: lockTimeout,
		lockStale:   lockStale,
		logger:      log,
	}
}

func (r *FileRoutingRepository) routingsPath() string {
	return filepath.Join(r.baseDir, r.centralShop, routingsFile)
}

func (r *FileRoutingRepository) lockPath() string {
	return filepath.Join(r.baseDir, r.centralShop, routingsLock)
}

// All devolve o documento inteiro: chave de variante -> roteamentos.
func (r *FileRoutingRepository) All(_ context.Context) (map[string][]domain.InventoryRouting, error) {
	return r.readDocument()
}

// ListForKey devolve os roteamentos declarados para a chave de variante
// (vazio quando não há).
func (r *FileRoutingRepository) ListForKey(_ context.Context, key string) ([]domain.InventoryRouting, error) {
	doc, err := r.readDocument()
	if err != nil {
		return nil, err
	}
	return doc[key], nil
}

// ReplaceForKey substitui os roteamentos da chave de variante. Lista vazia
// remove a entrada do documento.
func (r *FileRoutingRepository) ReplaceForKey(_ context.Context, key string, routings []domain.InventoryRouting) error {
	for _, routing := range routings {
		if err := routing.Validate(); err != nil {
			return err
		}
	}

	handle, err := lockfile.Acquire(r.lockPath(), r.lockTimeout, r.lockStale)
	if err != nil {
		return err
	}
	defer lockfile.Release(handle)

	doc, err := r.readDocument()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = make(map[string][]domain.InventoryRouting)
	}

	if len(routings) == 0 {
		delete(doc, key)
	} else {
		doc[key] = routings
	}

	return r.persist(doc)
}

func (r *FileRoutingRepository) readDocument() (map[string][]domain.InventoryRouting, error) {
	raw, err := os.ReadFile(r.routingsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewIOError("Falha ao ler os roteamentos do estoque central", err)
	}

	var doc map[string][]domain.InventoryRouting
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperror.NewIOError("Documento de roteamentos corrompido", err)
	}
	return doc, nil
}

func (r *FileRoutingRepository) persist(doc map[string][]domain.InventoryRouting) error {
	dir := filepath.Dir(r.routingsPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.NewIOError("Falha ao criar o diretório do estoque central", err)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperror.NewIOError("Falha ao serializar os roteamentos", err)
	}

	tmp, err := os.CreateTemp(dir, ".routings-*.tmp")
	if err != nil {
		return apperror.NewIOError("Falha ao criar arquivo temporário", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao gravar os roteamentos", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao fechar o arquivo temporário", err)
	}
	if err := os.Rename(tmpName, r.routingsPath()); err != nil {
		os.Remove(tmpName)
		return apperror.NewIOError("Falha ao substituir os roteamentos", err)
	}
	return nil
}

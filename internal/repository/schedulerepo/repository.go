// Package schedulerepo carrega as janelas de disponibilidade de aluguel
// declaradas por loja e por SKU de um documento JSON
// (DATA_DIR/<loja>/rental-schedule.json). Arquivo ausente ou SKU sem entrada
// significam "nenhuma janela declarada" (sempre disponível).
package schedulerepo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

const scheduleFile = "rental-schedule.json"

// FileScheduleRepository implementa rentalservice.AvailabilityProvider sobre
// o sistema de arquivos.
type FileScheduleRepository struct {
	baseDir string
	logger  logger.Logger
}

// NewFileScheduleRepository cria o repositório de janelas de disponibilidade.
func NewFileScheduleRepository(baseDir string, log logger.Logger) *FileScheduleRepository {
	return &FileScheduleRepository{baseDir: baseDir, logger: log}
}

// Windows devolve as janelas declaradas para o SKU (vazio quando não há).
func (r *FileScheduleRepository) Windows(_ context.Context, shop, sku string) ([]domain.AvailabilityWindow, error) {
	if err := domain.ValidateShopName(shop); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(r.baseDir, shop, scheduleFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewIOError("Falha ao ler o calendário de aluguel", err)
	}

	var schedule map[string][]domain.AvailabilityWindow
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, apperror.NewIOError("Calendário de aluguel corrompido", err)
	}
	return schedule[sku], nil
}

// Package lockfile implementa o lock consultivo entre processos usado pelos
// caminhos de mutação do inventário. O lock é a criação exclusiva de um
// arquivo marcador: vale apenas dentro de um único host e não protege contra
// remoção do arquivo por processos não relacionados.
package lockfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperror "stockledger/internal/errors"
)

const (
	// DefaultTimeout é o tempo máximo de espera pela aquisição do lock.
	DefaultTimeout = 5 * time.Second
	// DefaultStale é a idade a partir da qual um lock existente é tratado
	// como abandonado por um processo que morreu segurando-o.
	DefaultStale = 60 * time.Second

	pollInterval = 50 * time.Millisecond
)

// Handle representa a posse do lock. O chamador é dono do Handle pelo escopo
// de uma operação lógica e deve liberá-lo em todo caminho de saída
// (tipicamente com defer imediatamente após a aquisição).
type Handle struct {
	path string
	file *os.File
}

// Path retorna o caminho do arquivo de lock.
func (h *Handle) Path() string { return h.path }

// Acquire tenta obter o lock em path.
//
// Algoritmo: criação exclusiva do arquivo; em caso de "já existe", tenta de
// novo a cada 50ms. Esgotado o timeout, verifica o mtime do arquivo existente:
// se for mais velho que stale, o detentor anterior é considerado morto, o
// arquivo é removido e a aquisição é tentada imediatamente; caso contrário,
// falha com LockTimeoutError.
func Acquire(path string, timeout, stale time.Duration) (*Handle, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if stale <= 0 {
		stale = DefaultStale
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperror.NewIOError("Falha ao preparar o diretório do lock", err)
	}

	deadline := time.Now().Add(timeout)
	reclaimed := false

	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return &Handle{path: path, file: file}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, apperror.NewIOError("Falha ao criar o arquivo de lock", err)
		}

		if time.Now().After(deadline) {
			// Antes de desistir, verifica se o lock existente está obsoleto.
			info, statErr := os.Stat(path)
			if statErr == nil && time.Since(info.ModTime()) >= stale && !reclaimed {
				// Detentor anterior considerado morto: remove e tenta de novo
				// imediatamente. Uma única recuperação por chamada, para não
				// disputar a remoção indefinidamente com outros processos.
				_ = os.Remove(path)
				reclaimed = true
				continue
			}
			return nil, apperror.NewLockTimeoutError(path)
		}

		time.Sleep(pollInterval)
	}
}

// Release libera o lock: fecha o handle e remove o arquivo em melhor esforço.
// Erros na remoção são engolidos; a ausência do arquivo é o único efeito
// externamente observável que importa.
func Release(h *Handle) {
	if h == nil {
		return
	}
	if h.file != nil {
		_ = h.file.Close()
	}
	_ = os.Remove(h.path)
}

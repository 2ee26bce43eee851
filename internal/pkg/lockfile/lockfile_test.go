package lockfile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/lockfile"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "inventory.lock")
}

// TestAcquireRelease verifica o ciclo básico: adquirir cria o arquivo,
// liberar o remove.
func TestAcquireRelease(t *testing.T) {
	path := lockPath(t)

	handle, err := lockfile.Acquire(path, time.Second, time.Minute)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "o arquivo de lock deve existir enquanto o lock é mantido")

	lockfile.Release(handle)

	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "o arquivo de lock deve sumir após Release")
}

// TestAcquire_Contencao verifica que um segundo chamador falha com
// LockTimeoutError enquanto o lock está em posse de outro.
func TestAcquire_Contencao(t *testing.T) {
	path := lockPath(t)

	handle, err := lockfile.Acquire(path, time.Second, time.Minute)
	require.NoError(t, err)
	defer lockfile.Release(handle)

	_, err = lockfile.Acquire(path, 200*time.Millisecond, time.Minute)
	require.Error(t, err)
	assert.IsType(t, &apperror.LockTimeoutError{}, err)
}

// TestAcquire_RecuperaLockObsoleto verifica que um lock mais velho que o
// limiar de obsolescência é removido e readquirido (detentor anterior morto).
func TestAcquire_RecuperaLockObsoleto(t *testing.T) {
	path := lockPath(t)

	// Simula um lock abandonado: arquivo existente com mtime no passado.
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))

	handle, err := lockfile.Acquire(path, 200*time.Millisecond, time.Minute)
	require.NoError(t, err, "lock obsoleto deve ser recuperado")
	lockfile.Release(handle)
}

// TestAcquire_AguardaLiberacao verifica que um chamador bloqueado adquire o
// lock assim que o detentor atual o libera.
func TestAcquire_AguardaLiberacao(t *testing.T) {
	path := lockPath(t)

	first, err := lockfile.Acquire(path, time.Second, time.Minute)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		handle, acquireErr := lockfile.Acquire(path, 2*time.Second, time.Minute)
		if acquireErr == nil {
			lockfile.Release(handle)
		}
		done <- acquireErr
	}()

	// Libera depois de uma espera curta; o segundo chamador deve conseguir.
	time.Sleep(150 * time.Millisecond)
	lockfile.Release(first)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("segundo chamador nunca adquiriu o lock")
	}
}

// TestRelease_NilHandle verifica que liberar um handle nulo é inofensivo.
func TestRelease_NilHandle(t *testing.T) {
	lockfile.Release(nil)
}

package ledgerrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/ledgerrepo"
)

func newTestLog(t *testing.T) *ledgerrepo.FileEventLog {
	t.Helper()
	return ledgerrepo.NewFileEventLog(t.TempDir(), logger.NewLogger("error"))
}

func newEvent(shop string, kind domain.LedgerEventKind, key string, at time.Time) domain.LedgerEvent {
	return domain.LedgerEvent{
		ID:             uuid.NewString(),
		Kind:           kind,
		Shop:           shop,
		IdempotencyKey: key,
		Timestamp:      at,
	}
}

// TestFindByIdempotencyKey_EmptyLog verifica que loja sem log devolve nil sem erro.
func TestFindByIdempotencyKey_EmptyLog(t *testing.T) {
	log := newTestLog(t)

	found, err := log.FindByIdempotencyKey(context.Background(), "loja-a", domain.KindAdjustment, "batch-1")

	assert.NoError(t, err)
	assert.Nil(t, found)
}

// TestAppendAndFind verifica o apêndice e a busca por chave de idempotência.
func TestAppendAndFind(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	event := newEvent("loja-a", domain.KindAdjustment, "batch-1", now)
	require.NoError(t, log.Append(ctx, event))

	found, err := log.FindByIdempotencyKey(ctx, "loja-a", domain.KindAdjustment, "batch-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, event.ID, found.ID)

	// Mesma chave, tipo diferente: logs independentes.
	other, err := log.FindByIdempotencyKey(ctx, "loja-a", domain.KindInflow, "batch-1")
	require.NoError(t, err)
	assert.Nil(t, other)
}

// TestList_NewestFirstWithLimit verifica a ordenação decrescente e o recorte.
func TestList_NewestFirstWithLimit(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, newEvent("loja-a", domain.KindInflow,
			"batch-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))))
	}

	events, err := log.List(ctx, "loja-a", domain.KindInflow, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "batch-c", events[0].IdempotencyKey)
	assert.Equal(t, "batch-b", events[1].IdempotencyKey)

	// Limite zero devolve tudo.
	all, err := log.List(ctx, "loja-a", domain.KindInflow, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// TestAppend_ShopsAreIsolated verifica que cada loja tem o próprio log.
func TestAppend_ShopsAreIsolated(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, newEvent("loja-a", domain.KindAdjustment, "batch-1", time.Now())))

	events, err := log.List(ctx, "loja-b", domain.KindAdjustment, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

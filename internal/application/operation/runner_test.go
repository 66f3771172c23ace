package operation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T) (*Runner, *persistence.GormOperationLog, *cache.InMemoryIdempotencyStore) {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	opLog := persistence.NewGormOperationLog(db)
	return NewRunner(db, opLog, nil, WithIdempotencyStore(store)), opLog, store
}

func TestRunner_WithoutOperationID(t *testing.T) {
	r, _, _ := newRunner(t)
	calls := 0
	ref := uuid.New()

	res, err := r.Run(context.Background(), uuid.New(), "", "abatement", func(ctx context.Context) (uuid.UUID, error) {
		calls++
		assert.True(t, persistence.InTx(ctx))
		return ref, nil
	})

	require.NoError(t, err)
	assert.Equal(t, ref, res.Ref)
	assert.False(t, res.Replayed)
	assert.Equal(t, 1, calls)
}

func TestRunner_ReplaysCompletedOperation(t *testing.T) {
	r, opLog, _ := newRunner(t)
	ctx := context.Background()
	companyID := uuid.New()
	ref := uuid.New()
	calls := 0
	fn := func(context.Context) (uuid.UUID, error) {
		calls++
		return ref, nil
	}

	first, err := r.Run(ctx, companyID, "op-1", "abatement", fn)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := r.Run(ctx, companyID, "op-1", "abatement", fn)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, ref, second.Ref)
	assert.Equal(t, 1, calls)

	stored, err := opLog.Find(ctx, companyID, "op-1")
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())

	t.Run("same id in another company runs again", func(t *testing.T) {
		res, err := r.Run(ctx, uuid.New(), "op-1", "abatement", fn)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, 2, calls)
	})
}

func TestRunner_RejectsOperationIDReusedForAnotherKind(t *testing.T) {
	r, opLog, _ := newRunner(t)
	ctx := context.Background()
	companyID := uuid.New()
	ref := uuid.New()

	_, err := r.Run(ctx, companyID, "op-3", "abatement", func(context.Context) (uuid.UUID, error) {
		return ref, nil
	})
	require.NoError(t, err)

	calls := 0
	res, err := r.Run(ctx, companyID, "op-3", "withdrawal", func(context.Context) (uuid.UUID, error) {
		calls++
		return uuid.New(), nil
	})
	require.ErrorIs(t, err, ErrKindMismatch)
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
	assert.False(t, res.Replayed)
	assert.Equal(t, 0, calls)

	stored, err := opLog.Find(ctx, companyID, "op-3")
	require.NoError(t, err)
	assert.Equal(t, "abatement", stored.Kind)
	assert.Equal(t, ref, *stored.ResultRef)
}

func TestRunner_FailedOperationCanBeRetried(t *testing.T) {
	r, opLog, store := newRunner(t)
	ctx := context.Background()
	companyID := uuid.New()
	boom := errors.New("boom")

	_, err := r.Run(ctx, companyID, "op-2", "withdrawal", func(context.Context) (uuid.UUID, error) {
		return uuid.Nil, boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := opLog.Find(ctx, companyID, "op-2")
	require.NoError(t, err)
	assert.Equal(t, shared.OperationStatusFailed, stored.Status)
	assert.Equal(t, "boom", stored.Error)

	marked, err := store.IsProcessed(ctx, shared.OperationKey(companyID, "op-2"))
	require.NoError(t, err)
	assert.False(t, marked)

	ref := uuid.New()
	res, err := r.Run(ctx, companyID, "op-2", "withdrawal", func(context.Context) (uuid.UUID, error) {
		return ref, nil
	})
	require.NoError(t, err)
	assert.Equal(t, ref, res.Ref)
}

func TestRunner_ClaimedElsewhereIsInProgress(t *testing.T) {
	r, _, store := newRunner(t)
	ctx := context.Background()
	companyID := uuid.New()

	ok, err := store.MarkProcessed(ctx, shared.OperationKey(companyID, "op-3"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = r.Run(ctx, companyID, "op-3", "abatement", func(context.Context) (uuid.UUID, error) {
		t.Fatal("must not run")
		return uuid.Nil, nil
	})
	assert.ErrorIs(t, err, ErrInProgress)
	assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))
}

func TestRunner_RejectsOversizedOperationID(t *testing.T) {
	r, _, _ := newRunner(t)
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'x'
	}

	_, err := r.Run(context.Background(), uuid.New(), string(long), "abatement", func(context.Context) (uuid.UUID, error) {
		return uuid.New(), nil
	})
	assert.Equal(t, shared.CodeInvalidInput, shared.ErrorCode(err))
}

// Package operation runs multi-write use cases exactly once per
// client-supplied operation id.
package operation

import (
	"context"
	"errors"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMarkerTTL bounds how long a fast-path marker outlives its operation
const DefaultMarkerTTL = 24 * time.Hour

// ErrInProgress is returned when the same operation id is still running elsewhere
var ErrInProgress = shared.NewDomainError(shared.CodeConcurrencyConflict, "Operation is already in progress")

// ErrKindMismatch is returned when an operation id is reused for a different action
var ErrKindMismatch = shared.NewDomainError(shared.CodeInvalidInput, "Operation ID already used for another action")

// Result is what a Run produced
type Result struct {
	Ref      uuid.UUID
	Replayed bool
}

// Runner wraps a unit of work in one transaction and records it in the
// operation log. The idempotency store is only a fast-path claim; the
// operation log row written inside the transaction is authoritative.
type Runner struct {
	tx     shared.Transactor
	log    shared.OperationLog
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithMarkerTTL sets the fast-path marker TTL
func WithMarkerTTL(ttl time.Duration) Option {
	return func(r *Runner) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithIdempotencyStore sets the fast-path marker store
func WithIdempotencyStore(store shared.IdempotencyStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// NewRunner creates a Runner
func NewRunner(tx shared.Transactor, log shared.OperationLog, zl *zap.Logger, opts ...Option) *Runner {
	if zl == nil {
		zl = zap.NewNop()
	}
	r := &Runner{
		tx:     tx,
		log:    log,
		ttl:    DefaultMarkerTTL,
		logger: zl.Named("operation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn inside one transaction. With an empty operationID fn simply
// runs transactionally. Otherwise a completed operation with the same id is
// not re-executed: its stored result reference is returned with Replayed set.
func (r *Runner) Run(
	ctx context.Context,
	companyID uuid.UUID,
	operationID, kind string,
	fn func(ctx context.Context) (uuid.UUID, error),
) (Result, error) {
	if operationID == "" {
		var ref uuid.UUID
		err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			ref, err = fn(txCtx)
			return err
		})
		return Result{Ref: ref}, err
	}

	op, err := shared.NewOperation(companyID, operationID, kind)
	if err != nil {
		return Result{}, err
	}
	log := logger.For(logger.WithOperationID(ctx, op.OperationID), r.logger).
		With(zap.String("kind", kind))

	if res, done, err := r.completed(ctx, companyID, op.OperationID, kind); err != nil || done {
		if done {
			log.Info("operation replayed")
		}
		return res, err
	}

	key := shared.OperationKey(companyID, op.OperationID)
	claimed := r.claim(ctx, log, key)
	if !claimed {
		res, done, err := r.completed(ctx, companyID, op.OperationID, kind)
		if err != nil || done {
			return res, err
		}
		return Result{}, ErrInProgress
	}

	var ref uuid.UUID
	err = r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		ref, err = fn(txCtx)
		if err != nil {
			return err
		}
		op.Complete(ref)
		return r.log.Save(txCtx, op)
	})
	if err != nil {
		r.release(ctx, log, key)
		op.Fail(err)
		if saveErr := r.log.Save(ctx, op); saveErr != nil {
			log.Warn("failed to record failed operation", zap.Error(saveErr))
		}
		return Result{}, err
	}

	log.Debug("operation completed", zap.String("result_ref", ref.String()))
	return Result{Ref: ref}, nil
}

// completed looks the operation up in the log. An entry recorded under
// another kind is never replayed.
func (r *Runner) completed(ctx context.Context, companyID uuid.UUID, operationID, kind string) (Result, bool, error) {
	existing, err := r.log.Find(ctx, companyID, operationID)
	if errors.Is(err, shared.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	if existing.Kind != kind {
		return Result{}, false, ErrKindMismatch
	}
	if !existing.IsCompleted() || existing.ResultRef == nil {
		return Result{}, false, nil
	}
	return Result{Ref: *existing.ResultRef, Replayed: true}, true, nil
}

// claim sets the fast-path marker. A store failure does not block the
// operation; the log row still guards it.
func (r *Runner) claim(ctx context.Context, log *zap.Logger, key string) bool {
	if r.store == nil {
		return true
	}
	ok, err := r.store.MarkProcessed(ctx, key, r.ttl)
	if err != nil {
		log.Warn("idempotency store unavailable", zap.Error(err))
		return true
	}
	return ok
}

func (r *Runner) release(ctx context.Context, log *zap.Logger, key string) {
	if r.store == nil {
		return
	}
	if err := r.store.Forget(ctx, key); err != nil {
		log.Warn("failed to release operation marker", zap.Error(err))
	}
}

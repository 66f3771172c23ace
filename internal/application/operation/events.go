package operation

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// PublishEvents publishes and clears the pending events of each aggregate.
// Call it only after the transaction that persisted them has committed.
// Delivery failures are logged; the committed writes stand.
func PublishEvents(ctx context.Context, publisher shared.EventPublisher, zl *zap.Logger, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events := agg.GetDomainEvents()
		agg.ClearDomainEvents()
		if publisher == nil || len(events) == 0 {
			continue
		}
		if err := publisher.Publish(ctx, events...); err != nil {
			logger.For(ctx, zl).Warn("failed to publish domain events",
				zap.Int("count", len(events)),
				zap.Error(err))
		}
	}
}

// Outcome classifies the result of a use case for metrics labels
func Outcome(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return metrics.OutcomeReplayed
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return metrics.OutcomeConflict
	case shared.ErrorCode(err) != "":
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailure
	}
}

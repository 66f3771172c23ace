package event

import (
	"context"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JournalHandler writes every ledger event as one structured log line
// carrying the serialized payload.
type JournalHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewJournalHandler creates a journal over serializer's known types
func NewJournalHandler(serializer *EventSerializer, log *zap.Logger) *JournalHandler {
	return &JournalHandler{serializer: serializer, logger: log.Named("journal")}
}

// EventTypes subscribes the journal to every registered type
func (h *JournalHandler) EventTypes() []string {
	return h.serializer.RegisteredTypes()
}

// Handle logs the event
func (h *JournalHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(ev)
	if err != nil {
		return err
	}
	logger.For(ctx, h.logger).Info("ledger event",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.String("company_id", ev.CompanyID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

var _ shared.EventHandler = (*JournalHandler)(nil)

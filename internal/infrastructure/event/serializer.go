package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
)

// EventSerializer converts ledger events to and from JSON
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type
}

// NewEventSerializer creates a serializer with no registered types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// NewLedgerSerializer creates a serializer knowing every finance and trade event
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	s.Register(finance.EventTypeObligationCreated, &finance.ObligationCreatedEvent{})
	s.Register(finance.EventTypeAbatementApplied, &finance.AbatementAppliedEvent{})
	s.Register(finance.EventTypeObligationSettled, &finance.ObligationSettledEvent{})
	s.Register(finance.EventTypeObligationDeactivated, &finance.ObligationDeactivatedEvent{})
	s.Register(finance.EventTypeCashAccountAdjusted, &finance.CashAccountAdjustedEvent{})
	s.Register(trade.EventTypeSaleInvoiced, &trade.SaleInvoicedEvent{})
	s.Register(trade.EventTypeSaleWithdrawalRegistered, &trade.SaleWithdrawalRegisteredEvent{})
	s.Register(trade.EventTypeSaleFullyWithdrawn, &trade.SaleFullyWithdrawnEvent{})
	s.Register(trade.EventTypeQuoteStatusChanged, &trade.QuoteStatusChangedEvent{})
	s.Register(trade.EventTypeQuoteConverted, &trade.QuoteConvertedEvent{})
	return s
}

// Register binds eventType to the concrete type of instance
func (s *EventSerializer) Register(eventType string, instance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.registry[eventType] = t
}

// Serialize encodes an event as JSON
func (s *EventSerializer) Serialize(ev shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", ev.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	ev, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement DomainEvent", t)
	}
	return ev, nil
}

// IsRegistered reports whether eventType can be decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

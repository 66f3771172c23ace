package shared

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperationStatus is the lifecycle of a logged multi-write operation
type OperationStatus string

const (
	OperationStatusStarted   OperationStatus = "started"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

// Operation records one idempotent multi-write action keyed by a
// client-supplied operation id. A completed operation is never re-executed;
// the stored ResultRef is returned instead.
type Operation struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	OperationID string
	Kind        string
	Status      OperationStatus
	ResultRef   *uuid.UUID
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewOperation starts a new operation record
func NewOperation(companyID uuid.UUID, operationID, kind string) (*Operation, error) {
	operationID = strings.TrimSpace(operationID)
	if operationID == "" {
		return nil, NewDomainError(CodeInvalidInput, "Operation ID cannot be empty")
	}
	if len(operationID) > 128 {
		return nil, NewDomainError(CodeInvalidInput, "Operation ID cannot exceed 128 characters")
	}
	return &Operation{
		ID:          uuid.New(),
		CompanyID:   companyID,
		OperationID: operationID,
		Kind:        kind,
		Status:      OperationStatusStarted,
		CreatedAt:   time.Now(),
	}, nil
}

// Complete marks the operation as completed with a reference to its result
func (o *Operation) Complete(resultRef uuid.UUID) {
	now := time.Now()
	o.Status = OperationStatusCompleted
	o.ResultRef = &resultRef
	o.CompletedAt = &now
	o.Error = ""
}

// Fail marks the operation as failed
func (o *Operation) Fail(err error) {
	now := time.Now()
	o.Status = OperationStatusFailed
	o.CompletedAt = &now
	if err != nil {
		o.Error = err.Error()
	}
}

// IsCompleted reports whether the operation finished successfully
func (o *Operation) IsCompleted() bool {
	return o.Status == OperationStatusCompleted
}

// OperationLog persists operations. Find returns ErrNotFound when absent.
type OperationLog interface {
	Find(ctx context.Context, companyID uuid.UUID, operationID string) (*Operation, error)
	Save(ctx context.Context, op *Operation) error
}

// IdempotencyStore is a fast-path marker store in front of the OperationLog.
// A marker claims an operation key while it runs so a concurrent duplicate
// is turned away before it touches the database.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks if a key has already been marked
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget removes a marker so a failed operation can be retried
	Forget(ctx context.Context, key string) error
	// Close releases resources
	Close() error
}

// OperationKey scopes a client operation id to its company
func OperationKey(companyID uuid.UUID, operationID string) string {
	return companyID.String() + ":" + operationID
}

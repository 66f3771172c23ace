package middleware

import (
	"net/http"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Idempotency headers
const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"
	idempotencyKeyKey      = "idempotency_key"
	maxIdempotencyKeyLen   = 128
)

// IdempotencyKey stores the Idempotency-Key header so handlers can use it as
// the operation id of a mutation.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidInput,
				"Idempotency-Key cannot exceed 128 characters",
				GetRequestID(c),
			))
			return
		}
		c.Set(idempotencyKeyKey, key)
		c.Request = c.Request.WithContext(logger.WithOperationID(c.Request.Context(), key))
		c.Next()
	}
}

// OperationID returns the operation id for a mutation: the body value when
// set, otherwise the Idempotency-Key header.
func OperationID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetString(idempotencyKeyKey)
}

// MarkReplayed flags a response as the stored outcome of an earlier request
func MarkReplayed(c *gin.Context, replayed bool) {
	if replayed {
		c.Header(IdempotentReplayHeader, "true")
	}
}

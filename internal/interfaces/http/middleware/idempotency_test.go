package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey(t *testing.T) {
	var opID, logged string
	r := gin.New()
	r.Use(IdempotencyKey())
	r.POST("/x", func(c *gin.Context) {
		opID = OperationID(c, c.Query("op"))
		logged = logger.GetOperationID(c.Request.Context())
		MarkReplayed(c, c.Query("replayed") == "1")
		c.Status(http.StatusOK)
	})

	t.Run("header becomes operation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "abat-42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abat-42", opID)
		assert.Equal(t, "abat-42", logged)
		assert.Empty(t, w.Header().Get(IdempotentReplayHeader))
	})

	t.Run("body value wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x?op=from-body&replayed=1", nil)
		req.Header.Set(IdempotencyKeyHeader, "abat-42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "from-body", opID)
		assert.Equal(t, "true", w.Header().Get(IdempotentReplayHeader))
	})

	t.Run("no key", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))

		assert.Empty(t, opID)
	})

	t.Run("oversized key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, strings.Repeat("k", 129))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

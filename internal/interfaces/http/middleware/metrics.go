package middleware

import (
	"time"

	"github.com/erp/settlement/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request count and latency by route template. A nil
// ledger disables collection.
func HTTPMetrics(ledger *metrics.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ledger == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		ledger.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

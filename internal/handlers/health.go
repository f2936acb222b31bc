package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// RegisterHealth wires the liveness and readiness endpoints. ping reports whether
// the backing store is reachable; a nil ping means the store needs no
// connection check and readiness follows liveness.
func RegisterHealth(r *gin.Engine, ping func(ctx context.Context) error) {
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/readyz", func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, "store not ready")
				return
			}
		}
		c.String(http.StatusOK, "ready")
	})
}

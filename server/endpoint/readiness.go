package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyChecker returns nil when the service can take traffic.
type ReadyChecker func(ctx context.Context) error

// Readiness returns a handler for readiness probes. The relay is ready
// while its upstream feed is connected.
func Readiness(serviceName string, checker ReadyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ready",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		httpStatus := http.StatusOK

		if checker != nil {
			if err := checker(c.Request.Context()); err != nil {
				body["status"] = "not_ready"
				body["reason"] = err.Error()
				httpStatus = http.StatusServiceUnavailable
			}
		}

		c.JSON(httpStatus, body)
	}
}

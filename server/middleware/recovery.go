package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/eventrelay/errors"
	"github.com/kbukum/eventrelay/logger"
)

// Recovery returns a Gin middleware that recovers from panics and logs the
// stack. A nil log uses the global logger.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("Panic recovered", map[string]interface{}{
					"error":     fmt.Sprintf("%v", err),
					"stack":     string(debug.Stack()),
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				})
				appErr := errors.Internal(fmt.Errorf("panic: %v", err))
				c.AbortWithStatusJSON(appErr.StatusCode(), appErr.ToResponse())
			}
		}()
		c.Next()
	}
}

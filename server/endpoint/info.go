package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/eventrelay/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// StatsFunc returns live relay statistics for the info endpoint.
type StatsFunc func() any

// Info returns a handler that reports build information, uptime and,
// when stats is set, live relay statistics.
func Info(serviceName string, stats StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		body := gin.H{
			"service":    serviceName,
			"version":    v.Version,
			"git_commit": v.GitCommit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"is_release": v.IsRelease,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		}
		if stats != nil {
			body["relay"] = stats()
		}
		c.JSON(http.StatusOK, body)
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Observe 每个请求记录一行日志并上报指标
func Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		if status >= 500 {
			logger.Error("%s %s %d %s ip=%s", c.Request.Method, c.Request.URL.Path, status, elapsed, c.ClientIP())
		} else {
			logger.Info("%s %s %d %s ip=%s", c.Request.Method, c.Request.URL.Path, status, elapsed, c.ClientIP())
		}
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
)

// RequestRecorder records one HTTP request. The returned function is called
// with the response status once the handler chain finished.
type RequestRecorder interface {
	RequestStarted(method, route string) func(status int)
}

// unmatchedRoute labels requests no route matched, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// HTTPMetrics returns a middleware that counts requests and observes their
// latency by method and route pattern
func HTTPMetrics(recorder RequestRecorder) gin.HandlerFunc {
	if recorder == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		done := recorder.RequestStarted(c.Request.Method, route)
		c.Next()
		done(c.Writer.Status())
	}
}

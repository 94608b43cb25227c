package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TraceIDHeader = "X-Trace-Id"

// TraceIDMiddleware attaches a trace id to every request so report
// failures can be correlated with client reports.
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("trace_id", id)
		c.Writer.Header().Set(TraceIDHeader, id)
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a unique ID and echoes it on the response,
// reusing the client's ID when one is supplied so traces span proxies.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request's assigned ID, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(RequestIDHeader); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

package middleware

import (
	"broadway/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware tags each request with an id and stores a logger carrying it.
func RequestLoggerMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(utils.RequestLoggerKey, base.With(
			zap.String("request_id", requestID),
			zap.String("ip", getClientIP(c)),
		))
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pipecast/backend/pkg/response"
)

// HeaderCorrelationID is the header callers may supply to continue a trace;
// absent, a new id is generated per request.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID assigns a correlation id to each request so multi-step flows
// (registration, MFA enable) can be traced end-to-end across log lines.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(response.ContextCorrelationID, id)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

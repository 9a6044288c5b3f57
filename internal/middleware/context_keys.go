package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// clientIDKey holds the authenticated client identity, which is also the
// admission limiter's client id.
const clientIDKey = contextKey("clientID")

// GetClientIDFromContext retrieves the authenticated client ID from the Gin context.
// It returns the client ID and a boolean indicating if it was found.
func GetClientIDFromContext(c *gin.Context) (string, bool) {
	if v, exists := c.Get(string(clientIDKey)); exists {
		clientID, ok := v.(string)
		return clientID, ok && clientID != ""
	}
	// check in the request context as well
	return ClientIDFromCtx(c.Request.Context())
}

// ClientIDFromCtx reads the client ID from a standard context.
func ClientIDFromCtx(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(clientIDKey).(string)
	return clientID, ok && clientID != ""
}

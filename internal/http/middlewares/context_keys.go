package middlewares

import "github.com/gin-gonic/gin"

// gin context keys shared between middlewares and handlers
const (
	CtxRequestID = "request_id"
	CtxUser      = "auth.user"
	CtxUserID    = "auth.userID"
)

// abortJSON writes the same error envelope the handlers use.
func abortJSON(c *gin.Context, status int, code, message string) {
	reqID := c.GetString(CtxRequestID)
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if reqID != "" {
		body["requestId"] = reqID
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

package orderControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OrderWebSocketHandler upgrades operator connections onto the live order
// feed served by hub.
func OrderWebSocketHandler(hub http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeHTTP(c.Writer, c.Request)
	}
}

package middlewares

import (
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"
)

// OnlyAllowLocal rejects every client that is not on a loopback address. Only the peer address of the
// connection counts, X-Forwarded-For and friends are ignored.
func OnlyAllowLocal(c *gin.Context) {
	addr, err := netip.ParseAddr(c.RemoteIP())
	if err != nil || !addr.Unmap().IsLoopback() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	c.Next()
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reusemarket/gate/token"
)

// Gin adapts [Bearer] to a gin handler chain. Handlers further down read the
// claims with ClaimsFromContext(c.Request.Context()).
func Gin(m *token.Manager) gin.HandlerFunc {
	guard := Bearer(m)
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})

		guard(next).ServeHTTP(c.Writer, c.Request)

		// The guard answered without calling next.
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

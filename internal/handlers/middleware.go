package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// originPolicy decides which browser origins may call the API and open
// the signaling socket.
type originPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newOriginPolicy(allowed []string) originPolicy {
	p := originPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		if o == "*" {
			p.any = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.any {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// OriginFilter rejects cross-origin requests from origins outside
// allowedOrigins and sets CORS headers for the rest. Requests without an
// origin (curl, native clients) pass untouched. "*" allows any origin.
func OriginFilter(allowedOrigins []string) gin.HandlerFunc {
	policy := newOriginPolicy(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = c.GetHeader("Sec-WebSocket-Origin")
		}

		if origin != "" {
			if !policy.allows(origin) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Origin not allowed"})
				return
			}

			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

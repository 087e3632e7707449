package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS answers cross-origin requests for the origins in allowed, a
// comma-separated list. "*" (or an empty list) allows any origin; otherwise
// only listed origins are echoed back and everything else gets no CORS
// headers at all.
func CORS(allowed string) gin.HandlerFunc {
	wildcard := false
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowed, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			wildcard = true
			continue
		}
		origins[o] = true
	}
	if len(origins) == 0 {
		wildcard = true
	}

	return func(c *gin.Context) {
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origins[c.GetHeader("Origin")]:
			c.Header("Access-Control-Allow-Origin", c.GetHeader("Origin"))
			c.Header("Vary", "Origin")
		default:
			// Unlisted origin: the browser enforces the absence of the header.
			c.Next()
			return
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

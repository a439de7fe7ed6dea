// Package maintenance blocks writes while the library runs in read-only mode.
package maintenance

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const blockedMessage = "The library is in read-only maintenance mode"

// Paths that stay writable so users can still sign in and out.
var allowedPaths = []string{
	"/api/users/login",
	"/api/users/logout",
}

type Middleware struct {
	readOnly bool
}

func NewMiddleware(readOnly bool) *Middleware {
	return &Middleware{readOnly: readOnly}
}

func (m *Middleware) ReadOnly() bool {
	return m.readOnly
}

// Handler rejects mutating requests with 503 while read-only mode is on.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.readOnly {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.Header("Retry-After", "300")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":     blockedMessage,
			"read_only": true,
		})
	}
}

func isAllowedPath(path string) bool {
	for _, allowed := range allowedPaths {
		if path == allowed || strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}

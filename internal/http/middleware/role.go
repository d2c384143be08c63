package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireRoles allows the request only when the session role is one of
// allowedRoles. Session must run first.
//
//	r.POST("/trips", RequireRoles("admin"), handler)
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		sess := GetSession(c)
		if !sess.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "unauthorized: sign in required",
				"code":       "unauthorized",
				"request_id": GetRequestID(c),
			})
			return
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(sess.Role))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden: role not allowed",
				"code":       "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger prints one access line per request. Stream requests are logged
// when the client goes away, so their latency is the stream lifetime.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		session := GetSession(c)
		who := "-"
		switch {
		case session.Authenticated():
			who = "user"
		case session.GuestID != "":
			who = "guest"
		}

		log.Printf("[HTTP] request_id=%s method=%s path=%s status=%d latency_ms=%.3f ip=%s session=%s",
			GetRequestID(c),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			float64(latency.Microseconds())/1000.0,
			c.ClientIP(),
			who,
		)
		if len(c.Errors) > 0 {
			log.Printf("[HTTP] request_id=%s errors=%s", GetRequestID(c), strings.Join(c.Errors.Errors(), "; "))
		}
	}
}

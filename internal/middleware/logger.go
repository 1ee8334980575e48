package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger middleware logs HTTP requests together with the trip or session
// they touched and the authenticated subject
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		ref := c.Param("id")
		if ref == "" {
			ref = "-"
		}
		subject := c.GetString(SubjectKey)
		if subject == "" {
			subject = "-"
		}

		log.Printf("[%s] %s %s %d %v ref=%s sub=%s %s",
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
			ref,
			subject,
			c.Errors.String(),
		)
	}
}

package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// TokenCookie holds the access token for browser clients
	TokenCookie = "TOKEN"

	tokenKey = "accessToken"
)

// TokenMiddleware extracts the access token from the Authorization header or the
// TOKEN cookie. Requests without a token pass through; handlers decide what that means.
func TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			c.Set(tokenKey, strings.TrimSpace(auth[7:]))
		} else if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
			c.Set(tokenKey, cookie)
		}

		c.Next()
	}
}

// LoggerMiddleware logs every request
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func accessToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

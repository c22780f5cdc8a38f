package httpgin

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redisrepo "github.com/kirinyoku/tix-client/internal/repository/redis"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		reqID, _ := c.Get("request_id")

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.String("ua", c.Request.UserAgent()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", latency),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		anyAttrs := make([]any, len(attrs))
		for i := range attrs {
			anyAttrs[i] = attrs[i]
		}

		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			logger.Error("http", slog.Group("http", anyAttrs...))
		case status >= http.StatusBadRequest:
			logger.Warn("http", slog.Group("http", anyAttrs...))
		default:
			logger.Debug("http", slog.Group("http", anyAttrs...))
		}
	}
}

type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

// RateLimit throttles a route per client IP. A nil limiter disables it and
// limiter failures let the request through.
func RateLimit(l Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		d, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, failure("Too many attempts. Please try again later."))
			return
		}
		c.Next()
	}
}

type staffChecker interface {
	IsLoggedIn() bool
	IsStaff() bool
}

// RequireStaff rejects requests unless the session belongs to an admin or
// power user.
func RequireStaff(s staffChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.IsLoggedIn() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, failure("You need to be logged in to access this page."))
			return
		}
		if !s.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, failure("You do not have permission to access this page."))
			return
		}
		c.Next()
	}
}

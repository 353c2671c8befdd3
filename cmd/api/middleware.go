package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/config"
	"github.com/sirupsen/logrus"
)

const correlationHeader = "X-Correlation-Id"

// correlationID tags every request with the caller's id or a fresh one.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Set("correlation_id", cid)
		c.Header(correlationHeader, cid)
		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"latency":        time.Since(start).String(),
			"correlation_id": c.GetString("correlation_id"),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Debug("request")
	}
}

// corsConfig allows every origin in development. In release mode only the
// configured origins are allowed, and none when the list is empty.
func corsConfig(cfg *config.ServerConfig) cors.Config {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(cfg.CORSAllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	case cfg.Mode == gin.ReleaseMode:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", correlationHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", correlationHeader)
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return corsConfig
}

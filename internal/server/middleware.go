package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.String("panic", fmt.Sprint(r)),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
			}
		}()
		c.Next()
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{"X-Cache"}
	return cfg
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(corsConfig(origins))
}

// ValidateCORSOrigins reports origins the CORS middleware would reject.
func ValidateCORSOrigins(origins []string) error {
	if len(origins) == 0 {
		return nil
	}
	if err := corsConfig(origins).Validate(); err != nil {
		return fmt.Errorf("invalid cors-origins: %w", err)
	}
	return nil
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justyntemme/shelfscan/internal/auth"
	"github.com/justyntemme/shelfscan/internal/lookup"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Issuer validates bearer tokens. Without one the admin routes are not
	// registered and every request is anonymous.
	Issuer *auth.Issuer
	// RequireAuth makes a valid token mandatory on lookup routes.
	RequireAuth bool
	Logger      *slog.Logger
}

// NewRouter wires the handler's routes into a gin engine.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/", h.Index)
	r.GET("/health", h.HealthCheck)
	r.GET("/api", h.APIInfo)
	r.GET("/stats", h.GetStats)

	lookups := r.Group("/")
	lookups.Use(apiVersionHeader())
	if opts.Issuer != nil {
		if opts.RequireAuth {
			lookups.Use(auth.Middleware(opts.Issuer))
		} else {
			lookups.Use(auth.OptionalMiddleware(opts.Issuer))
		}
	}
	{
		lookups.GET("/check/:id", h.Check)
		lookups.POST("/batch_check/", h.BatchCheck)
		lookups.POST("/scan", h.Scan)
	}

	if opts.Issuer != nil {
		authHandler := NewAuthHandler(opts.Issuer)

		protected := r.Group("/")
		protected.Use(auth.Middleware(opts.Issuer))
		{
			protected.GET("/auth/me", authHandler.WhoAmI)
			protected.POST("/admin/reload", h.Reload)
			protected.POST("/admin/tokens", authHandler.IssueToken)
		}
	}

	return r
}

// corsMiddleware allows the browser extension to call from any page
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+lookup.HeaderClient)
		c.Header("Access-Control-Expose-Headers", lookup.HeaderAPIVersion)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(lookup.HeaderAPIVersion, lookup.APIVersion)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		if client := c.GetHeader(lookup.HeaderClient); client != "" {
			attrs = append(attrs, slog.String("client", client))
		}
		if subject := auth.GetSubject(c); subject != "" {
			attrs = append(attrs, slog.String("subject", subject))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", attrs...)
			return
		}
		logger.Debug("request", attrs...)
	}
}

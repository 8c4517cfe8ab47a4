package http

import (
	"strings"
	"time"

	"shop-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p := principalFrom(c); p != nil {
			fields = append(fields, zap.String("user_id", p.ID))
		}
		if c.Writer.Status() >= 500 {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// optionalAuth attaches the principal when a valid token is present and
// lets anonymous requests through.
func (h *Handler) optionalAuth(c *gin.Context) {
	if raw := bearerToken(c); raw != "" {
		if p, err := h.auth.Authenticate(raw); err == nil {
			c.Set(principalKey, p)
		}
	}
	c.Next()
}

func (h *Handler) requireAuth(c *gin.Context) {
	raw := bearerToken(c)
	if raw == "" {
		h.fail(c, domain.NewUnauthorized("unauthorized"))
		return
	}
	p, err := h.auth.Authenticate(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(principalKey, p)
	c.Next()
}

// requireRole must run after requireAuth.
func (h *Handler) requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := domain.RequireRole(principalFrom(c), role); err != nil {
			h.fail(c, err)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}

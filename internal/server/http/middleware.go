package httpserver

import (
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/limiter"
)

// AccessLog logs one line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		// metadata only, never bodies
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recover turns a panic into a 500.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

// authenticate verifies the bearer token and syncs the user row.
func (s *Server) authenticate(c *gin.Context) {
	raw, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		s.fail(c, errs.ErrUnauthorized)
		return
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		s.fail(c, errs.ErrUnauthorized)
		return
	}
	u, err := s.svc.Accounts.Sync(c.Request.Context(), claims)
	if err != nil {
		s.fail(c, err)
		return
	}
	WithUser(c, u)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if u, ok := UserFromCtx(c); !ok || !u.IsAdmin() {
		s.fail(c, errs.ErrForbidden)
		return
	}
	c.Next()
}

// limit applies the rate limit guard to action, keyed by user id or a digest of the client IP.
func (s *Server) limit(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := limiter.HashKey(c.ClientIP())
		if u, ok := UserFromCtx(c); ok {
			subject = u.ID
		}
		ok, retry := s.guard.Allow(c.Request.Context(), action, subject)
		if !ok {
			if retry > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			}
			s.fail(c, errs.ErrRateLimited)
			return
		}
		c.Next()
	}
}

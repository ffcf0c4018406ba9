package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/errs"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrBanned):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrSellerNotReady), errors.Is(err, errs.ErrBadSignature):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": msg}. Internal details never leave the process.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		s.log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		msg = "internal error"
	case http.StatusBadGateway:
		s.log.Warn("upstream failed", zap.String("route", c.FullPath()), zap.Error(err))
		msg = errs.ErrUpstream.Error()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

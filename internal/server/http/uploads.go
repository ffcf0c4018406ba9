package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kodamarket/koda/internal/service"
)

func (s *Server) handleUploadImage(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	up, err := s.svc.Uploads.PresignImage(c.Request.Context(), mustUser(c).ID, req, s.origin(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}

func (s *Server) handleUploadFile(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	up, err := s.svc.Uploads.PresignFile(c.Request.Context(), mustUser(c).ID, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}

// handleImage streams a stored image. Workflow files are refused by the service.
func (s *Server) handleImage(c *gin.Context) {
	body, ctype, err := s.svc.Uploads.OpenImage(c.Request.Context(), c.Query("url"))
	if err != nil {
		s.fail(c, err)
		return
	}
	defer body.Close()
	c.DataFromReader(http.StatusOK, -1, ctype, body, map[string]string{
		"Cache-Control": "public, max-age=31536000, immutable",
	})
}

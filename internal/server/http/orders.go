package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the payload read before signature verification.
const maxWebhookBody = 1 << 20

func (s *Server) handleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	res, err := s.svc.Webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "type": res.EventType, "created": res.Created, "skipped": res.Skipped})
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req struct {
		ProductIDs []string `json:"productIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := uuid.FromString(raw)
		if err != nil {
			badRequest(c, "invalid product id")
			return
		}
		ids = append(ids, id)
	}
	url, err := s.svc.Checkout.Start(c.Request.Context(), mustUser(c).ID, ids)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

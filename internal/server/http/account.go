package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/kodamarket/koda/internal/model"
)

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, mustUser(c).View())
}

func (s *Server) handleMyProducts(c *gin.Context) {
	list, err := s.svc.Products.MyProducts(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (s *Server) handleSales(c *gin.Context) {
	list, err := s.svc.Accounts.SalesHistory(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": list})
}

func (s *Server) handleOrders(c *gin.Context) {
	list, err := s.svc.Accounts.Orders(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// handleBalance answers {"balance": null} when the provider cannot be reached.
func (s *Server) handleBalance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"balance": s.svc.Accounts.Balance(c.Request.Context(), mustUser(c))})
}

func (s *Server) handleOnboarding(c *gin.Context) {
	url, err := s.svc.Accounts.OnboardingLink(c.Request.Context(), mustUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleCart(c *gin.Context) {
	list, err := s.svc.Shopper.Cart(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (s *Server) handleAddToCart(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Shopper.AddToCart(c.Request.Context(), mustUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveFromCart(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Shopper.RemoveFromCart(c.Request.Context(), mustUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFavorites(c *gin.Context) {
	list, err := s.svc.Shopper.Favorites(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (s *Server) handleFavoriteIDs(c *gin.Context) {
	ids, err := s.svc.Shopper.FavoriteIDs(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids})
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	on, err := s.svc.Shopper.ToggleFavorite(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": on})
}

func (s *Server) handleNotifications(c *gin.Context) {
	list, unread, err := s.svc.Shopper.Notifications(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unreadCount": unread})
}

func (s *Server) handleRead(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Shopper.MarkRead(c.Request.Context(), mustUser(c).ID, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReadAll(c *gin.Context) {
	if err := s.svc.Shopper.MarkAllRead(c.Request.Context(), mustUser(c).ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminUsers(c *gin.Context) {
	users, err := s.svc.Accounts.SearchUsers(c.Request.Context(), mustUser(c), c.Query("q"), cast.ToInt(c.Query("limit")))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleBan(banned bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.svc.Accounts.SetBanned(c.Request.Context(), mustUser(c), c.Param("id"), banned); err != nil {
			s.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleSetRole(c *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	if err := s.svc.Accounts.SetRole(c.Request.Context(), mustUser(c), c.Param("id"), model.Role(req.Role)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

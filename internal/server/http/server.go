// Package httpserver exposes the marketplace HTTP API.
package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/limiter"
	"github.com/kodamarket/koda/internal/service"
)

// Rate limited actions.
const (
	actionCheckout = "checkout"
	actionProduct  = "product"
	actionReview   = "review"
	actionUpload   = "upload"
)

// Services groups the application services the handlers call.
type Services struct {
	Checkout service.CheckoutService
	Webhooks service.WebhookReconciler
	Products service.ProductService
	Reviews  service.ReviewService
	Accounts service.AccountService
	Shopper  service.ShopperService
	Uploads  service.UploadService
}

// Server wires services into gin handlers.
type Server struct {
	svc       Services
	tokens    *TokenVerifier
	guard     *limiter.Guard
	publicURL string
	proxies   []string
	log       *zap.Logger
}

// New constructs the HTTP server. publicURL is the site origin used in generated links;
// when empty it is derived from the request.
func New(svc Services, tokens *TokenVerifier, guard *limiter.Guard, publicURL string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, tokens: tokens, guard: guard, publicURL: strings.TrimRight(publicURL, "/"), log: log}
}

// TrustProxies sets the proxy addresses whose X-Forwarded-For headers decide the client IP.
// By default no proxy is trusted and the client IP is the peer address.
func (s *Server) TrustProxies(proxies []string) *Server {
	s.proxies = proxies
	return s
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.proxies); err != nil {
		s.log.Error("trusted proxies rejected, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(Recover(s.log), AccessLog(s.log))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.POST("/webhooks/stripe", s.handleWebhook)
	api.GET("/products", s.handleListProducts)
	api.GET("/products/:id", s.handleGetProduct)
	api.GET("/products/:id/reviews", s.handleListReviews)
	api.GET("/image", s.handleImage)

	auth := api.Group("", s.authenticate)
	auth.POST("/checkout", s.limit(actionCheckout), s.handleCheckout)

	auth.POST("/products", s.limit(actionProduct), s.handleCreateProduct)
	auth.PUT("/products/:id", s.handleUpdateProduct)
	auth.DELETE("/products/:id", s.handleDeleteProduct)
	auth.GET("/products/:id/download", s.handleDownload)

	auth.POST("/products/:id/reviews", s.limit(actionReview), s.handleSubmitReview)
	auth.POST("/products/:id/comments", s.limit(actionReview), s.handleComment)
	auth.DELETE("/reviews/:id", s.handleDeleteReview)
	auth.POST("/reviews/:id/replies", s.limit(actionReview), s.handleReply)
	auth.PUT("/replies/:id", s.handleEditReply)

	auth.GET("/cart", s.handleCart)
	auth.POST("/cart/:id", s.handleAddToCart)
	auth.DELETE("/cart/:id", s.handleRemoveFromCart)
	auth.GET("/favorites", s.handleFavorites)
	auth.GET("/favorites/ids", s.handleFavoriteIDs)
	auth.POST("/favorites/:id", s.handleToggleFavorite)

	auth.GET("/me", s.handleMe)
	auth.GET("/me/products", s.handleMyProducts)
	auth.GET("/me/sales", s.handleSales)
	auth.GET("/me/orders", s.handleOrders)
	auth.GET("/me/balance", s.handleBalance)
	auth.POST("/me/onboarding", s.handleOnboarding)

	auth.GET("/notifications", s.handleNotifications)
	auth.POST("/notifications/read-all", s.handleReadAll)
	auth.POST("/notifications/:id/read", s.handleRead)

	auth.POST("/uploads/image", s.limit(actionUpload), s.handleUploadImage)
	auth.POST("/uploads/file", s.limit(actionUpload), s.handleUploadFile)

	admin := auth.Group("/admin", s.requireAdmin)
	admin.GET("/users", s.handleAdminUsers)
	admin.POST("/users/:id/ban", s.handleBan(true))
	admin.POST("/users/:id/unban", s.handleBan(false))
	admin.POST("/users/:id/role", s.handleSetRole)

	return r
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// origin is the public site origin.
func (s *Server) origin(c *gin.Context) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/kodamarket/koda/internal/model"
)

// listValues accepts both repeated and comma separated query values.
func listValues(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func priceParam(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		badRequest(c, key+" must be a positive number")
		return nil, false
	}
	return &d, true
}

func (s *Server) handleListProducts(c *gin.Context) {
	minPrice, ok := priceParam(c, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := priceParam(c, "maxPrice")
	if !ok {
		return
	}
	page, err := s.svc.Products.List(c.Request.Context(), model.ProductFilter{
		Query:      c.Query("q"),
		Platforms:  listValues(c, "platform"),
		Categories: listValues(c, "category"),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       c.DefaultQuery("sort", model.SortNewest),
		Page:       cast.ToInt(c.Query("page")),
		Limit:      cast.ToInt(c.Query("limit")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p, err := s.svc.Products.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var in model.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	p, err := s.svc.Products.Create(c.Request.Context(), mustUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.View())
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var up model.ProductUpdate
	if err := c.ShouldBindJSON(&up); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	p, err := s.svc.Products.Update(c.Request.Context(), mustUser(c), id, up)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Products.Delete(c.Request.Context(), mustUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDownload(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	url, err := s.svc.Products.Download(c.Request.Context(), mustUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) handleListReviews(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	list, err := s.svc.Reviews.List(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (s *Server) handleSubmitReview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	rv, err := s.svc.Reviews.SubmitReview(c.Request.Context(), mustUser(c), id, req.Rating, req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rv.View())
}

func (s *Server) handleComment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Kind    string `json:"kind"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	if req.Kind == "" {
		req.Kind = string(model.KindComment)
	}
	rv, err := s.svc.Reviews.Comment(c.Request.Context(), mustUser(c), id, model.ReviewKind(req.Kind), req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv.View())
}

func (s *Server) handleDeleteReview(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Reviews.DeleteReview(c.Request.Context(), mustUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type textRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) handleReply(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	rv, err := s.svc.Reviews.Reply(c.Request.Context(), mustUser(c), id, req.Comment)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv.View())
}

func (s *Server) handleEditReply(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	if err := s.svc.Reviews.EditReply(c.Request.Context(), mustUser(c), id, req.Comment); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

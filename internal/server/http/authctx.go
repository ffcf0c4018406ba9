package httpserver

import (
	"github.com/gin-gonic/gin"

	"github.com/kodamarket/koda/internal/model"
)

const userKey = "koda.user"

// WithUser stores the authenticated user in the request context.
func WithUser(c *gin.Context, u *model.User) {
	c.Set(userKey, u)
}

// UserFromCtx fetches the authenticated user.
func UserFromCtx(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok && u != nil
}

func mustUser(c *gin.Context) model.User {
	u, _ := UserFromCtx(c)
	if u == nil {
		return model.User{}
	}
	return *u
}

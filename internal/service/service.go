// Package service contains the marketplace application services.
package service

import (
	"context"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/kodamarket/koda/internal/model"
	"github.com/kodamarket/koda/internal/repository"
)

// ObjectStore is the slice of object storage the services need.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType, filename string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	URL(key string) string
	KeyFromURL(raw string) (string, error)
}

// Notification message keys rendered by clients.
const (
	keySaleTitle     = "notifications.sale.title"
	keySaleMessage   = "notifications.sale.message"
	keyOrderTitle    = "notifications.order.title"
	keyOrderMessage  = "notifications.order.message"
	keyReviewTitle   = "notifications.review.title"
	keyReviewMessage = "notifications.review.message"
	keyReplyTitle    = "notifications.reply.title"
	keyReplyMessage  = "notifications.reply.message"
)

// notifier stores notifications best-effort: a failure is logged, never returned.
type notifier struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

func (n notifier) send(ctx context.Context, note model.Notification) {
	if n.repo == nil {
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		n.log.Error("notification id", zap.Error(err))
		return
	}
	note.ID = id
	if err := n.repo.Create(ctx, &note); err != nil {
		n.log.Warn("notification not stored",
			zap.String("user_id", note.UserID), zap.String("type", string(note.Type)), zap.Error(err))
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/model"
)

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListForUser returns the newest notifications first.
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	// MarkRead flags one notification; returns errs.ErrNotFound if it is not the user's.
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

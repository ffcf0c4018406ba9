package postgres

import (
	"context"
	"encoding/json"

	"github.com/gofrs/uuid/v5"

	"github.com/kodamarket/koda/internal/errs"
	"github.com/kodamarket/koda/internal/model"
)

// NotificationRepo implements NotificationRepository using PostgreSQL.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification. Params are stored as JSONB.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	params := n.Params
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO notifications (id, user_id, type, title, message, title_key, message_key, params, link)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, n.ID, n.UserID, string(n.Type), n.Title, n.Message,
		n.TitleKey, n.MessageKey, raw, n.Link).Scan(&n.CreatedAt)
}

// ListForUser returns the latest notifications of a user.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	const q = `
SELECT id, user_id, type, title, message, title_key, message_key, params, link, read, created_at
FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n   model.Notification
			typ string
			raw []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.TitleKey, &n.MessageKey,
			&raw, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = model.NotificationType(typ)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Params); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one of the user's notifications as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE user_id=$1 AND NOT read`, userID)
	return err
}

// UnreadCount counts unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND NOT read`, userID).Scan(&n)
	return n, err
}

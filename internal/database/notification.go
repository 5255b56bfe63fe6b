package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lingopeer/lingopeer/internal/models"
)

// InsertNotificationTx writes one notification row. Called by the notifier
// worker inside its batch flush transaction.
func InsertNotificationTx(ctx context.Context, tx pgx.Tx, n models.Notification) error {
	q := `
		INSERT INTO notifications (id, user_id, actor_id, type, request_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
	`
	var reqID any
	if n.RequestID != uuid.Nil {
		reqID = n.RequestID
	}
	_, err := tx.Exec(ctx, q, n.ID, n.UserID, n.ActorID, n.Type, reqID)
	return err
}

// ListNotifications returns the user's notifications, newest first.
func ListNotifications(ctx context.Context, user uuid.UUID) ([]models.Notification, error) {
	q := `
		SELECT id, user_id, actor_id, type, COALESCE(request_id, '00000000-0000-0000-0000-000000000000'), read, created_at
		FROM notifications
		WHERE user_id=$1
		ORDER BY created_at DESC
	`
	rows, err := DB.Query(ctx, q, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &n.Type, &n.RequestID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationsRead flips every unread notification for the user.
func MarkNotificationsRead(ctx context.Context, user uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND NOT read`, user)
		return err
	})
}

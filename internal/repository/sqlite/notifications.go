package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

const notificationColumns = `id, user_id, type, priority, title, message, link, metadata, is_read, read_at, is_archived, created`

func scanNotification(s scanner) (*models.Notification, error) {
	var n models.Notification
	var meta sql.NullString
	var read, archived int
	var readAt sql.NullInt64
	if err := s.Scan(&n.ID, &n.UserID, &n.Type, &n.Priority, &n.Title, &n.Message, &n.Link, &meta, &read, &readAt, &archived, &n.Created); err != nil {
		return nil, err
	}
	n.Metadata = rawPtr(meta)
	n.IsRead = read == 1
	n.ReadAt = intPtr(readAt)
	n.IsArchived = archived == 1
	return &n, nil
}

func (r *SQLiteRepo) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	if n == nil {
		return 0, fmt.Errorf("notification is nil")
	}
	priority := n.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	created := n.Created
	if created == 0 {
		created = now()
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO notifications (user_id, type, priority, title, message, link, metadata, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Type, priority, n.Title, n.Message, n.Link, rawOrDefault(n.Metadata, "{}"), created)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(r.conn.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// ListNotifications orders by priority (HIGH first) then newest. Read and archived rows are hidden unless requested.
func (r *SQLiteRepo) ListNotifications(ctx context.Context, userID int64, f models.NotificationFilter) ([]models.Notification, error) {
	limit, _ := clampPage(f.Limit, 0, 50)

	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if !f.IncludeRead {
		q += ` AND is_read = 0`
	}
	if !f.IncludeArchived {
		q += ` AND is_archived = 0`
	}
	q += ` ORDER BY CASE priority WHEN 'HIGH' THEN 2 WHEN 'NORMAL' THEN 1 ELSE 0 END DESC, created DESC, id DESC LIMIT ?`

	rows, err := r.conn.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0 AND is_archived = 0`, userID).Scan(&n)
	return n, err
}

func (r *SQLiteRepo) MarkRead(ctx context.Context, userID, id int64, at int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?`, at, id, userID))
}

func (r *SQLiteRepo) MarkAllRead(ctx context.Context, userID int64, at int64) (int64, error) {
	res, err := r.conn.Exec(ctx, `UPDATE notifications SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0`, at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepo) Archive(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE notifications SET is_archived = 1 WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepo) DeleteNotification(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID))
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

func (r *SQLiteRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	if t == nil {
		return fmt.Errorf("refresh token is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created) VALUES (?, ?, ?, ?)`, t.UserID, t.TokenHash, t.ExpiresAt, now())
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepo) GetRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := r.conn.QueryRow(ctx, `SELECT id, user_id, token_hash, expires_at, created FROM refresh_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *SQLiteRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *SQLiteRepo) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *SQLiteRepo) CreatePasswordReset(ctx context.Context, pr *models.PasswordReset) (int64, error) {
	if pr == nil {
		return 0, fmt.Errorf("password reset is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO password_resets (user_id, code_hash, expires_at, used, created) VALUES (?, ?, ?, 0, ?)`, pr.UserID, pr.CodeHash, pr.ExpiresAt, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// GetActivePasswordReset returns the newest unused, unexpired code of the user.
func (r *SQLiteRepo) GetActivePasswordReset(ctx context.Context, userID int64, at int64) (*models.PasswordReset, error) {
	var pr models.PasswordReset
	var used int
	err := r.conn.QueryRow(ctx, `SELECT id, user_id, code_hash, expires_at, used, created FROM password_resets
		WHERE user_id = ? AND used = 0 AND expires_at > ? ORDER BY created DESC, id DESC LIMIT 1`, userID, at).
		Scan(&pr.ID, &pr.UserID, &pr.CodeHash, &pr.ExpiresAt, &used, &pr.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pr.Used = used == 1

	return &pr, nil
}

func (r *SQLiteRepo) MarkPasswordResetUsed(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE password_resets SET used = 1 WHERE id = ?`, id))
}

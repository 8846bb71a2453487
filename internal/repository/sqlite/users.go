package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

const userColumns = `id, name, email, password_hash, role, headline, bio, location, phone, profile_image, company_id, xp, level, is_active, cv_parsed, last_login, created, updated`

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	var companyID, lastLogin sql.NullInt64
	var cv sql.NullString
	var active int
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Headline, &u.Bio, &u.Location, &u.Phone, &u.ProfileImage,
		&companyID, &u.XP, &u.Level, &active, &cv, &lastLogin, &u.Created, &u.Updated)
	if err != nil {
		return nil, err
	}
	u.CompanyID = intPtr(companyID)
	u.LastLogin = intPtr(lastLogin)
	u.IsActive = active == 1
	u.CVParsed = rawPtr(cv)
	return &u, nil
}

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}
	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (name, email, password_hash, role, headline, bio, location, phone, profile_image, is_active, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, role, u.Headline, u.Bio, u.Location, u.Phone, u.ProfileImage, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *SQLiteRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// UpdateUser writes the editable profile fields, role, company link and active flag.
func (r *SQLiteRepo) UpdateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	return affected(r.conn.Exec(ctx, `UPDATE users SET name = ?, role = ?, headline = ?, bio = ?, location = ?, phone = ?, profile_image = ?, company_id = ?, is_active = ?, updated = ? WHERE id = ?`,
		u.Name, u.Role, u.Headline, u.Bio, u.Location, u.Phone, u.ProfileImage, nullInt(u.CompanyID), boolInt(u.IsActive), now(), u.ID))
}

func (r *SQLiteRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return affected(r.conn.Exec(ctx, `UPDATE users SET password_hash = ?, updated = ? WHERE id = ?`, hash, now(), id))
}

func (r *SQLiteRepo) TouchLastLogin(ctx context.Context, id int64) error {
	ts := now()
	_, err := r.conn.Exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, ts, id)
	return err
}

func (r *SQLiteRepo) SetCVParsed(ctx context.Context, id int64, cv json.RawMessage) error {
	var v any
	if len(cv) > 0 {
		v = string(cv)
	}
	return affected(r.conn.Exec(ctx, `UPDATE users SET cv_parsed = ?, updated = ? WHERE id = ?`, v, now(), id))
}

func (r *SQLiteRepo) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	limit, offset = clampPage(limit, offset, 20)

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}

	return out, total, rows.Err()
}

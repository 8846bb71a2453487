package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

const resumeColumns = `id, user_id, title, data, file_key, file_name, mime_type, file_size, extracted_text, review, last_reviewed_at,
	career_advice, share_slug, is_public, share_expiry, share_views, last_viewed_at, created, updated`

func scanResume(s scanner) (*models.Resume, error) {
	var res models.Resume
	var data string
	var reviewed, expiry, viewed sql.NullInt64
	var advice, slug sql.NullString
	var public int
	err := s.Scan(&res.ID, &res.UserID, &res.Title, &data, &res.FileKey, &res.FileName, &res.MimeType, &res.FileSize, &res.ExtractedText, &res.Review, &reviewed,
		&advice, &slug, &public, &expiry, &res.ShareViews, &viewed, &res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	res.Data = json.RawMessage(data)
	res.LastReviewedAt = intPtr(reviewed)
	res.CareerAdvice = rawPtr(advice)
	if slug.Valid {
		v := slug.String
		res.ShareSlug = &v
	}
	res.IsPublic = public == 1
	res.ShareExpiry = intPtr(expiry)
	res.LastViewedAt = intPtr(viewed)
	return &res, nil
}

func (r *SQLiteRepo) CreateResume(ctx context.Context, res *models.Resume) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("resume is nil")
	}

	ts := now()
	out, err := r.conn.Exec(ctx, `INSERT INTO resumes (user_id, title, data, file_key, file_name, mime_type, file_size, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.Title, rawOrDefault(res.Data, "{}"), res.FileKey, res.FileName, res.MimeType, res.FileSize, ts, ts)
	if err != nil {
		return 0, err
	}

	return out.LastInsertId()
}

func (r *SQLiteRepo) GetResume(ctx context.Context, id int64) (*models.Resume, error) {
	res, err := scanResume(r.conn.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *SQLiteRepo) ListResumesByUser(ctx context.Context, userID int64) ([]models.Resume, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE user_id = ? ORDER BY created DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Resume
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateResume(ctx context.Context, res *models.Resume) error {
	if res == nil {
		return fmt.Errorf("resume is nil")
	}

	return affected(r.conn.Exec(ctx, `UPDATE resumes SET title = ?, data = ?, updated = ? WHERE id = ?`, res.Title, rawOrDefault(res.Data, "{}"), now(), res.ID))
}

func (r *SQLiteRepo) DeleteResume(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM resumes WHERE id = ?`, id))
}

// AttachResumeFile records an uploaded file and clears text extracted from a previous one.
func (r *SQLiteRepo) AttachResumeFile(ctx context.Context, id int64, key, name, mime string, size int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET file_key = ?, file_name = ?, mime_type = ?, file_size = ?, extracted_text = '', updated = ? WHERE id = ?`,
		key, name, mime, size, now(), id))
}

func (r *SQLiteRepo) SetResumeText(ctx context.Context, id int64, text string) error {
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET extracted_text = ?, updated = ? WHERE id = ?`, text, now(), id))
}

func (r *SQLiteRepo) SetResumeReview(ctx context.Context, id int64, review string, at int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET review = ?, last_reviewed_at = ?, updated = ? WHERE id = ?`, review, at, now(), id))
}

func (r *SQLiteRepo) SetCareerAdvice(ctx context.Context, id int64, advice json.RawMessage) error {
	var v any
	if len(advice) > 0 {
		v = string(advice)
	}
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET career_advice = ?, updated = ? WHERE id = ?`, v, now(), id))
}

// SetResumeShare replaces the sharing state. A nil slug revokes the link.
func (r *SQLiteRepo) SetResumeShare(ctx context.Context, id int64, slug *string, public bool, expiry *int64) error {
	var s any
	if slug != nil {
		s = *slug
	}
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET share_slug = ?, is_public = ?, share_expiry = ?, updated = ? WHERE id = ?`,
		s, boolInt(public), nullInt(expiry), now(), id))
}

func (r *SQLiteRepo) GetResumeBySlug(ctx context.Context, slug string) (*models.Resume, error) {
	res, err := scanResume(r.conn.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE share_slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *SQLiteRepo) IncrementShareViews(ctx context.Context, id int64, at int64) error {
	return affected(r.conn.Exec(ctx, `UPDATE resumes SET share_views = share_views + 1, last_viewed_at = ? WHERE id = ?`, at, id))
}

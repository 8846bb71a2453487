package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
)

const jobColumns = `id, company_id, posted_by, title, company_name, location, type, description, requirements, benefits,
	salary_min, salary_max, currency, experience_level, remote, status, external_url, posted_at, expires_at, created, updated`

func scanJob(s scanner) (*models.Job, error) {
	var j models.Job
	var companyID, postedBy, salaryMin, salaryMax, expires sql.NullInt64
	var remote int
	err := s.Scan(&j.ID, &companyID, &postedBy, &j.Title, &j.CompanyName, &j.Location, &j.Type, &j.Description, &j.Requirements, &j.Benefits,
		&salaryMin, &salaryMax, &j.Currency, &j.ExperienceLevel, &remote, &j.Status, &j.ExternalURL, &j.PostedAt, &expires, &j.Created, &j.Updated)
	if err != nil {
		return nil, err
	}
	j.CompanyID = intPtr(companyID)
	j.PostedBy = intPtr(postedBy)
	j.SalaryMin = intPtr(salaryMin)
	j.SalaryMax = intPtr(salaryMax)
	j.ExpiresAt = intPtr(expires)
	j.Remote = remote == 1
	return &j, nil
}

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	status := j.Status
	if status == "" {
		status = models.JobStatusOpen
	}
	ts := now()
	postedAt := j.PostedAt
	if postedAt == 0 {
		postedAt = ts
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO jobs (company_id, posted_by, title, company_name, location, type, description, requirements, benefits,
		salary_min, salary_max, currency, experience_level, remote, status, external_url, posted_at, expires_at, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(j.CompanyID), nullInt(j.PostedBy), j.Title, j.CompanyName, j.Location, j.Type, j.Description, j.Requirements, j.Benefits,
		nullInt(j.SalaryMin), nullInt(j.SalaryMax), j.Currency, j.ExperienceLevel, boolInt(j.Remote), status, j.ExternalURL, postedAt, nullInt(j.ExpiresAt), ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	j, err := scanJob(r.conn.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (r *SQLiteRepo) UpdateJob(ctx context.Context, j *models.Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}

	return affected(r.conn.Exec(ctx, `UPDATE jobs SET title = ?, company_name = ?, location = ?, type = ?, description = ?, requirements = ?, benefits = ?,
		salary_min = ?, salary_max = ?, currency = ?, experience_level = ?, remote = ?, status = ?, external_url = ?, expires_at = ?, updated = ? WHERE id = ?`,
		j.Title, j.CompanyName, j.Location, j.Type, j.Description, j.Requirements, j.Benefits,
		nullInt(j.SalaryMin), nullInt(j.SalaryMax), j.Currency, j.ExperienceLevel, boolInt(j.Remote), j.Status, j.ExternalURL, nullInt(j.ExpiresAt), now(), j.ID))
}

func (r *SQLiteRepo) DeleteJob(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, id))
}

// ListJobs returns jobs matching the filter, newest first, with the unpaged total.
func (r *SQLiteRepo) ListJobs(ctx context.Context, f models.JobFilter) ([]models.Job, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 20)

	var conds []string
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, `(title LIKE ? OR company_name LIKE ? OR description LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	if f.Type != "" {
		conds = append(conds, `type = ?`)
		args = append(args, f.Type)
	}
	if f.ExperienceLevel != "" {
		conds = append(conds, `experience_level = ?`)
		args = append(args, f.ExperienceLevel)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
	}
	if f.CompanyID != 0 {
		conds = append(conds, `company_id = ?`)
		args = append(args, f.CompanyID)
	}
	if f.Remote != nil {
		conds = append(conds, `remote = ?`)
		args = append(args, boolInt(*f.Remote))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.Query(ctx, `SELECT `+jobColumns+` FROM jobs`+where+` ORDER BY posted_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}

	return out, total, rows.Err()
}

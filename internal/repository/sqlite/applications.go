package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const applicationColumns = `id, user_id, job_id, job_title, company_name, location, job_url, salary, job_type, experience_level, status, notes, applied_at, created, updated`

func scanApplication(s scanner) (*models.JobApplication, error) {
	var a models.JobApplication
	var jobID, salary sql.NullInt64
	err := s.Scan(&a.ID, &a.UserID, &jobID, &a.JobTitle, &a.CompanyName, &a.Location, &a.JobURL, &salary, &a.JobType, &a.ExperienceLevel,
		&a.Status, &a.Notes, &a.AppliedAt, &a.Created, &a.Updated)
	if err != nil {
		return nil, err
	}
	a.JobID = intPtr(jobID)
	a.Salary = intPtr(salary)
	return &a, nil
}

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.JobApplication) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}
	status := a.Status
	if status == "" {
		status = models.ApplicationApplied
	}
	ts := now()
	appliedAt := a.AppliedAt
	if appliedAt == 0 {
		appliedAt = ts
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO job_applications (user_id, job_id, job_title, company_name, location, job_url, salary, job_type, experience_level, status, notes, applied_at, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, nullInt(a.JobID), a.JobTitle, a.CompanyName, a.Location, a.JobURL, nullInt(a.Salary), a.JobType, a.ExperienceLevel, status, a.Notes, appliedAt, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id int64) (*models.JobApplication, error) {
	a, err := scanApplication(r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM job_applications WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepo) UpdateApplication(ctx context.Context, a *models.JobApplication) error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}

	return affected(r.conn.Exec(ctx, `UPDATE job_applications SET job_id = ?, job_title = ?, company_name = ?, location = ?, job_url = ?, salary = ?, job_type = ?,
		experience_level = ?, status = ?, notes = ?, applied_at = ?, updated = ? WHERE id = ?`,
		nullInt(a.JobID), a.JobTitle, a.CompanyName, a.Location, a.JobURL, nullInt(a.Salary), a.JobType, a.ExperienceLevel, a.Status, a.Notes, a.AppliedAt, now(), a.ID))
}

func (r *SQLiteRepo) DeleteApplication(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM job_applications WHERE id = ?`, id))
}

func (r *SQLiteRepo) ListApplications(ctx context.Context, f repository.ApplicationFilter) ([]models.JobApplication, int64, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 50)

	var conds []string
	var args []any
	if f.UserID != 0 {
		conds = append(conds, `user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.JobID != 0 {
		conds = append(conds, `job_id = ?`)
		args = append(args, f.JobID)
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.Query(ctx, `SELECT `+applicationColumns+` FROM job_applications`+where+` ORDER BY applied_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.JobApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}

	return out, total, rows.Err()
}

func (r *SQLiteRepo) ApplicationStats(ctx context.Context, userID int64) (*models.ApplicationStats, error) {
	where := ""
	var args []any
	if userID != 0 {
		where = " WHERE user_id = ?"
		args = append(args, userID)
	}

	rows, err := r.conn.Query(ctx, `SELECT status, job_id IS NULL, COUNT(*) FROM job_applications`+where+` GROUP BY status, job_id IS NULL`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &models.ApplicationStats{ByStatus: make(map[string]int, len(models.ApplicationStatuses))}
	for _, s := range models.ApplicationStatuses {
		st.ByStatus[s] = 0
	}
	for rows.Next() {
		var status string
		var external, n int
		if err := rows.Scan(&status, &external, &n); err != nil {
			return nil, err
		}
		st.Total += n
		st.ByStatus[status] += n
		if external == 1 {
			st.External += n
		} else {
			st.Internal += n
		}
	}

	return st, rows.Err()
}

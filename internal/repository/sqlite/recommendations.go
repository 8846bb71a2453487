package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const recommendationColumns = `id, user_id, job_id, match_score, description, status, generated_at`

func scanRecommendation(s scanner) (*models.JobRecommendation, error) {
	var rec models.JobRecommendation
	if err := s.Scan(&rec.ID, &rec.UserID, &rec.JobID, &rec.MatchScore, &rec.Description, &rec.Status, &rec.GeneratedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepo) queryRecommendations(ctx context.Context, query string, args ...any) ([]models.JobRecommendation, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobRecommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CreateRecommendation(ctx context.Context, rec *models.JobRecommendation) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("recommendation is nil")
	}

	status := rec.Status
	if status == "" {
		status = models.RecommendationNotAdded
	}
	generated := rec.GeneratedAt
	if generated == 0 {
		generated = now()
	}
	res, err := r.conn.Exec(ctx, `INSERT INTO job_recommendations (user_id, job_id, match_score, description, status, generated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.JobID, rec.MatchScore, rec.Description, status, generated)
	if isUniqueViolation(err) {
		return 0, repository.ErrConflict
	}
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetRecommendation(ctx context.Context, id int64) (*models.JobRecommendation, error) {
	rec, err := scanRecommendation(r.conn.QueryRow(ctx, `SELECT `+recommendationColumns+` FROM job_recommendations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *SQLiteRepo) ListRecommendations(ctx context.Context, limit, offset int) ([]models.JobRecommendation, int64, error) {
	limit, offset = clampPage(limit, offset, 20)

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_recommendations`).Scan(&total); err != nil {
		return nil, 0, err
	}
	out, err := r.queryRecommendations(ctx, `SELECT `+recommendationColumns+` FROM job_recommendations ORDER BY generated_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	return out, total, err
}

func (r *SQLiteRepo) ListAddedRecommendations(ctx context.Context, userID int64) ([]models.JobRecommendation, error) {
	return r.queryRecommendations(ctx, `SELECT `+recommendationColumns+` FROM job_recommendations WHERE user_id = ? AND status = ?
		ORDER BY match_score DESC, id`, userID, models.RecommendationAdded)
}

func (r *SQLiteRepo) SearchRecommendations(ctx context.Context, userID int64, keyword string) ([]models.JobRecommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM job_recommendations WHERE instr(lower(description), lower(?)) > 0`
	args := []any{keyword}
	if userID != 0 {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	return r.queryRecommendations(ctx, query+` ORDER BY match_score DESC, id`, args...)
}

func (r *SQLiteRepo) SetRecommendationStatus(ctx context.Context, id int64, status string) error {
	return affected(r.conn.Exec(ctx, `UPDATE job_recommendations SET status = ? WHERE id = ?`, status, id))
}

func (r *SQLiteRepo) DeleteRecommendation(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM job_recommendations WHERE id = ?`, id))
}

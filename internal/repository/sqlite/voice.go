package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

const voiceColumns = `id, user_id, stream_url, status, cv_data, job_description, report, overall_score, created, completed_at`

func scanVoiceSession(s scanner) (*models.VoiceSession, error) {
	var v models.VoiceSession
	var cv, jd string
	var report sql.NullString
	var score, completed sql.NullInt64
	if err := s.Scan(&v.ID, &v.UserID, &v.StreamURL, &v.Status, &cv, &jd, &report, &score, &v.Created, &completed); err != nil {
		return nil, err
	}
	v.CVData = json.RawMessage(cv)
	v.JobDescription = json.RawMessage(jd)
	v.Report = rawPtr(report)
	if score.Valid {
		sc := int(score.Int64)
		v.OverallScore = &sc
	}
	v.CompletedAt = intPtr(completed)
	return &v, nil
}

func (r *SQLiteRepo) CreateVoiceSession(ctx context.Context, s *models.VoiceSession) error {
	if s == nil {
		return fmt.Errorf("voice session is nil")
	}
	status := s.Status
	if status == "" {
		status = models.VoiceStatusActive
	}
	if s.Created == 0 {
		s.Created = now()
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO voice_sessions (id, user_id, stream_url, status, cv_data, job_description, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.StreamURL, status, rawOrDefault(s.CVData, "{}"), rawOrDefault(s.JobDescription, "{}"), s.Created)
	return err
}

func (r *SQLiteRepo) GetVoiceSession(ctx context.Context, id string) (*models.VoiceSession, error) {
	v, err := scanVoiceSession(r.conn.QueryRow(ctx, `SELECT `+voiceColumns+` FROM voice_sessions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *SQLiteRepo) LatestVoiceSession(ctx context.Context, userID int64) (*models.VoiceSession, error) {
	v, err := scanVoiceSession(r.conn.QueryRow(ctx, `SELECT `+voiceColumns+` FROM voice_sessions WHERE user_id = ? ORDER BY created DESC LIMIT 1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *SQLiteRepo) ListVoiceSessions(ctx context.Context, userID int64) ([]models.VoiceSession, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+voiceColumns+` FROM voice_sessions WHERE user_id = ? ORDER BY created DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VoiceSession
	for rows.Next() {
		v, err := scanVoiceSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}

	return out, rows.Err()
}

// UpdateVoiceStatus never moves a completed session out of completed.
func (r *SQLiteRepo) UpdateVoiceStatus(ctx context.Context, id, status string) error {
	return affected(r.conn.Exec(ctx, `UPDATE voice_sessions SET status = CASE WHEN status = 'completed' THEN status ELSE ? END WHERE id = ?`, status, id))
}

// CompleteVoiceSession is idempotent: only the first call flips the status and returns true.
func (r *SQLiteRepo) CompleteVoiceSession(ctx context.Context, id string, report json.RawMessage, score int, at int64) (bool, error) {
	res, err := r.conn.Exec(ctx, `UPDATE voice_sessions SET status = 'completed', report = ?, overall_score = ?, completed_at = ? WHERE id = ? AND status != 'completed'`,
		rawOrDefault(report, "[]"), score, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

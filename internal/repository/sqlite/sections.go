package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const sectionColumns = `id, resume_id, type, title, content, sort_order, created, updated`

func scanSection(s scanner) (*models.ResumeSection, error) {
	var sec models.ResumeSection
	var content string
	if err := s.Scan(&sec.ID, &sec.ResumeID, &sec.Type, &sec.Title, &content, &sec.SortOrder, &sec.Created, &sec.Updated); err != nil {
		return nil, err
	}
	sec.Content = json.RawMessage(content)
	return &sec, nil
}

func (r *SQLiteRepo) CreateResumeSection(ctx context.Context, s *models.ResumeSection) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("section is nil")
	}

	ts := now()
	out, err := r.conn.Exec(ctx, `INSERT INTO resume_sections (resume_id, type, title, content, sort_order, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ResumeID, s.Type, s.Title, rawOrDefault(s.Content, "{}"), s.SortOrder, ts, ts)
	if err != nil {
		return 0, err
	}

	return out.LastInsertId()
}

func (r *SQLiteRepo) CreateResumeSections(ctx context.Context, resumeID int64, sections []models.ResumeSection) error {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := now()
	for _, s := range sections {
		if _, err := tx.ExecContext(ctx, `INSERT INTO resume_sections (resume_id, type, title, content, sort_order, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			resumeID, s.Type, s.Title, rawOrDefault(s.Content, "{}"), s.SortOrder, ts, ts); err != nil {
			return fmt.Errorf("insert section %s: %w", s.Type, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepo) GetResumeSection(ctx context.Context, id int64) (*models.ResumeSection, error) {
	sec, err := scanSection(r.conn.QueryRow(ctx, `SELECT `+sectionColumns+` FROM resume_sections WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sec, err
}

// ListResumeSections returns the sections in display order, each carrying its pending suggestions.
func (r *SQLiteRepo) ListResumeSections(ctx context.Context, resumeID int64) ([]models.ResumeSection, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+sectionColumns+` FROM resume_sections WHERE resume_id = ? ORDER BY sort_order, id`, resumeID)
	if err != nil {
		return nil, err
	}
	var out []models.ResumeSection
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *sec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pending, err := r.ListResumeSuggestions(ctx, resumeID, models.SuggestionPending, nil)
	if err != nil {
		return nil, err
	}
	for _, sg := range pending {
		if sg.SectionID == nil {
			continue
		}
		for i := range out {
			if out[i].ID == *sg.SectionID {
				out[i].Suggestions = append(out[i].Suggestions, sg)
				break
			}
		}
	}

	return out, nil
}

func (r *SQLiteRepo) UpdateResumeSection(ctx context.Context, s *models.ResumeSection) error {
	if s == nil {
		return fmt.Errorf("section is nil")
	}

	return affected(r.conn.Exec(ctx, `UPDATE resume_sections SET type = ?, title = ?, content = ?, sort_order = ?, updated = ? WHERE id = ?`,
		s.Type, s.Title, rawOrDefault(s.Content, "{}"), s.SortOrder, now(), s.ID))
}

func (r *SQLiteRepo) DeleteResumeSection(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM resume_sections WHERE id = ?`, id))
}

func (r *SQLiteRepo) ReorderResumeSections(ctx context.Context, resumeID int64, orders map[int64]int) error {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := now()
	for id, order := range orders {
		res, err := tx.ExecContext(ctx, `UPDATE resume_sections SET sort_order = ?, updated = ? WHERE id = ? AND resume_id = ?`, order, ts, id, resumeID)
		if err := affected(res, err); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const suggestionColumns = `id, resume_id, section_id, type, original, suggested, reason, status, applied_at, created`

func scanSuggestion(s scanner) (*models.ResumeSuggestion, error) {
	var sg models.ResumeSuggestion
	var section, applied sql.NullInt64
	var original, suggested string
	if err := s.Scan(&sg.ID, &sg.ResumeID, &section, &sg.Type, &original, &suggested, &sg.Reason, &sg.Status, &applied, &sg.Created); err != nil {
		return nil, err
	}
	sg.SectionID = intPtr(section)
	sg.AppliedAt = intPtr(applied)
	sg.Original = json.RawMessage(original)
	sg.Suggested = json.RawMessage(suggested)
	return &sg, nil
}

func (r *SQLiteRepo) CreateResumeSuggestion(ctx context.Context, s *models.ResumeSuggestion) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("suggestion is nil")
	}

	status := s.Status
	if status == "" {
		status = models.SuggestionPending
	}
	out, err := r.conn.Exec(ctx, `INSERT INTO resume_suggestions (resume_id, section_id, type, original, suggested, reason, status, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ResumeID, nullInt(s.SectionID), s.Type, rawOrDefault(s.Original, "{}"), rawOrDefault(s.Suggested, "{}"), s.Reason, status, now())
	if err != nil {
		return 0, err
	}

	return out.LastInsertId()
}

func (r *SQLiteRepo) GetResumeSuggestion(ctx context.Context, id int64) (*models.ResumeSuggestion, error) {
	sg, err := scanSuggestion(r.conn.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM resume_suggestions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sg, err
}

// ListResumeSuggestions returns newest first. Empty status and nil sectionID match everything.
func (r *SQLiteRepo) ListResumeSuggestions(ctx context.Context, resumeID int64, status string, sectionID *int64) ([]models.ResumeSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM resume_suggestions WHERE resume_id = ?`
	args := []any{resumeID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if sectionID != nil {
		query += ` AND section_id = ?`
		args = append(args, *sectionID)
	}
	query += ` ORDER BY created DESC, id DESC`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ResumeSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sg)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) SetSuggestionStatus(ctx context.Context, id int64, status string, at int64) error {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var applied any
	if status == models.SuggestionAccepted {
		applied = at
	}
	res, err := tx.ExecContext(ctx, `UPDATE resume_suggestions SET status = ?, applied_at = ? WHERE id = ?`, status, applied, id)
	if err := affected(res, err); err != nil {
		return err
	}

	if status == models.SuggestionAccepted {
		var section sql.NullInt64
		var suggested string
		if err := tx.QueryRowContext(ctx, `SELECT section_id, suggested FROM resume_suggestions WHERE id = ?`, id).Scan(&section, &suggested); err != nil {
			return err
		}
		if section.Valid {
			res, err := tx.ExecContext(ctx, `UPDATE resume_sections SET content = ?, updated = ? WHERE id = ?`, suggested, at, section.Int64)
			if err := affected(res, err); err != nil {
				if err == repository.ErrNotFound {
					return fmt.Errorf("section %d of suggestion %d: %w", section.Int64, id, err)
				}
				return err
			}
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepo) DeleteResumeSuggestion(ctx context.Context, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM resume_suggestions WHERE id = ?`, id))
}
